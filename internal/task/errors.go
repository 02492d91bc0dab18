// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package task

import "errors"

// ErrNotFound is returned when a task does not exist or belongs to someone else.
// The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("task not found")
