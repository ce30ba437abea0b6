package builtin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/action"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/service"
	"github.com/AccelByte/extend-casino-retention/pkg/service/mock"
)

func fastRetry() *action.RetryConfig {
	return &action.RetryConfig{MaxAttempts: 4, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Backoff: "exponential"}
}

func setup(t *testing.T, deliverer service.Deliverer) *action.Executor {
	t.Helper()
	RegisterActions(service.NewDependencies().WithDeliverer(deliverer))

	registry := action.NewRegistry()
	err := action.RegisterActions(registry, []action.ActionConfig{
		{ID: "cashback", Type: CreditCashbackActionID, Enabled: true, Retry: fastRetry(), Parameters: map[string]interface{}{"max_amount": 400}},
		{ID: "spins", Type: GrantFreeSpinsActionID, Enabled: true, Retry: fastRetry()},
		{ID: "message", Type: SendMessageActionID, Enabled: true, Retry: fastRetry()},
	})
	if err != nil {
		t.Fatalf("RegisterActions: %v", err)
	}
	return action.NewExecutor(registry, nil)
}

func iv(ty intervention.Type, amount float64) intervention.Intervention {
	return *intervention.New(intervention.Proposal{ID: "iv-1", ActorID: 9, Type: ty, Amount: amount, Message: "hello"}, time.Now())
}

func TestChannels_Deliver(t *testing.T) {
	tests := []struct {
		name     string
		actionID string
		iv       intervention.Intervention
		wantErr  bool
		calls    int
	}{
		{"cashback", "cashback", iv(intervention.Cashback, 50), false, 1},
		{"free spins", "spins", iv(intervention.FreeSpins, 20), false, 1},
		{"message", "message", iv(intervention.MessageOnly, 0), false, 1},
		{"over channel limit", "cashback", iv(intervention.Cashback, 450), true, 0},
		{"monetary without amount", "spins", iv(intervention.FreeSpins, 0), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mock.NewDeliverer(0, 1)
			result, err := setup(t, d).Deliver(context.Background(), tt.actionID, tt.iv)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(d.Calls()) != tt.calls {
				t.Errorf("deliverer calls = %d, want %d", len(d.Calls()), tt.calls)
			}
			if tt.wantErr && result.Attempts != 1 {
				t.Errorf("permanent failure retried: %d attempts", result.Attempts)
			}
			if !tt.wantErr {
				call := d.Calls()[0]
				if call.InterventionID != "iv-1" || call.ActorID != 9 || call.Attempt != 1 {
					t.Errorf("Unexpected delivery: %+v", call)
				}
			}
		})
	}
}

func TestChannels_MisroutedTypeRefused(t *testing.T) {
	d := mock.NewDeliverer(0, 1)
	result, err := setup(t, d).Deliver(context.Background(), "message", iv(intervention.Cashback, 50))
	if !errors.Is(err, action.ErrWrongChannel) {
		t.Fatalf("err = %v, want ErrWrongChannel", err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %+v", result)
	}
	if len(d.Calls()) != 0 {
		t.Errorf("deliverer calls = %d, want 0", len(d.Calls()))
	}
}

func TestChannels_UnreachablePlayerFailsPermanently(t *testing.T) {
	d := mock.NewDeliverer(0, 1)
	d.SetPreferences(service.ContactPreferences{ActorID: 9, EmailOK: true, DoNotDisturb: true})

	result, err := setup(t, d).Deliver(context.Background(), "message", iv(intervention.MessageOnly, 0))
	if !errors.Is(err, service.ErrNotContactable) {
		t.Fatalf("err = %v, want ErrNotContactable", err)
	}
	if errors.Is(err, action.ErrMaxRetriesExceeded) {
		t.Errorf("unreachable player was retried to exhaustion: %v", err)
	}
	if result == nil || result.Attempts != 1 {
		t.Errorf("result = %+v, want a single attempt", result)
	}
}

func TestChannels_Carries(t *testing.T) {
	RegisterActions(service.NewDependencies().WithDeliverer(mock.NewDeliverer(0, 1)))
	want := map[string]intervention.Type{
		CreditCashbackActionID: intervention.Cashback,
		GrantFreeSpinsActionID: intervention.FreeSpins,
		SendMessageActionID:    intervention.MessageOnly,
	}
	for typ, carries := range want {
		a, err := action.CreateAction(action.ActionConfig{ID: typ, Type: typ, Enabled: true})
		if err != nil {
			t.Fatalf("CreateAction %s: %v", typ, err)
		}
		if a.Carries() != carries {
			t.Errorf("%s carries %s, want %s", typ, a.Carries(), carries)
		}
	}
}

func TestChannels_RetriesThenFails(t *testing.T) {
	d := mock.NewDeliverer(1, 1)
	result, err := setup(t, d).Deliver(context.Background(), "cashback", iv(intervention.Cashback, 50))
	if !errors.Is(err, action.ErrMaxRetriesExceeded) {
		t.Fatalf("Expected ErrMaxRetriesExceeded, got %v", err)
	}
	if result.Success || result.Attempts != 4 {
		t.Errorf("Unexpected result: %+v", result)
	}
	calls := d.Calls()
	if len(calls) != 4 || calls[3].Attempt != 4 {
		t.Errorf("Expected 4 numbered attempts, got %+v", calls)
	}
}

func TestChannels_RecoversAfterTransientFailure(t *testing.T) {
	d := mock.NewDeliverer(0, 1)
	d.DeliverFunc = func(_ context.Context, del service.Delivery) error {
		if del.Attempt < 3 {
			return service.ErrDeliveryRejected
		}
		return nil
	}

	result, err := setup(t, d).Deliver(context.Background(), "message", iv(intervention.MessageOnly, 0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
}

func TestChannels_MissingDeliverer(t *testing.T) {
	_, err := setup(t, nil).Deliver(context.Background(), "message", iv(intervention.MessageOnly, 0))
	if !errors.Is(err, action.ErrMissingDeliverer) {
		t.Errorf("Expected ErrMissingDeliverer, got %v", err)
	}
}
