// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
	"github.com/sirupsen/logrus"
)

// InitSignalProcessor creates the processor that turns settled bets into
// signals with the player's recent window attached.
func InitSignalProcessor(windows signal.WindowStore, window int) *signal.Processor {
	processor := signal.NewProcessor(windows, window)
	logrus.Infof("initialized signal processor with window of %d bets", window)
	return processor
}
