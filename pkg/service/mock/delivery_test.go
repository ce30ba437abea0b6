package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/service"
)

func TestDeliverer_FailureRate(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		wantFail bool
	}{
		{"never fails", 0, false},
		{"always fails", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeliverer(tt.rate, 7)
			err := d.Deliver(context.Background(), service.Delivery{InterventionID: "iv", Attempt: 1})
			if (err != nil) != tt.wantFail {
				t.Fatalf("err = %v, wantFail %v", err, tt.wantFail)
			}
			if tt.wantFail && !errors.Is(err, service.ErrDeliveryRejected) {
				t.Errorf("Expected ErrDeliveryRejected, got %v", err)
			}
			if err := d.AssertDelivered("iv"); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestDeliverer_DeliverFunc(t *testing.T) {
	d := NewDeliverer(1, 7)
	d.DeliverFunc = func(context.Context, service.Delivery) error { return nil }
	if err := d.Deliver(context.Background(), service.Delivery{InterventionID: "x"}); err != nil {
		t.Errorf("Expected override to succeed, got %v", err)
	}
	d.Reset()
	if len(d.Calls()) != 0 {
		t.Error("Expected calls cleared")
	}
}

func TestDeliverer_ContactPreferences(t *testing.T) {
	d := NewDeliverer(0, 7)
	d.SetPreferences(service.ContactPreferences{ActorID: 1, EmailOK: true, OptedOutMarketing: true})
	d.SetPreferences(service.ContactPreferences{ActorID: 2, SMSOK: true})

	tests := []struct {
		name    string
		actorID int
		typ     intervention.Type
		wantErr error
	}{
		{"opted-out player gets no message", 1, intervention.MessageOnly, service.ErrNotContactable},
		{"opted-out player still gets a reward", 1, intervention.Cashback, nil},
		{"reachable player gets the message", 2, intervention.MessageOnly, nil},
		{"player without preferences", 3, intervention.MessageOnly, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Deliver(context.Background(), service.Delivery{
				InterventionID: "iv", ActorID: tt.actorID, Type: string(tt.typ), Attempt: 1,
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
