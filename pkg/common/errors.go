// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import "errors"

// ErrInvariantViolation marks programming errors that must stop the run.
// Wrap it, never return it bare, so the caller can still tell what broke.
var ErrInvariantViolation = errors.New("invariant violation")
