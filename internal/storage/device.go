// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// DeviceID returns the anonymous device identifier, minting and storing a
// random UUID on first use. The id is unrelated to the signed-in identity
// and survives logout.
func DeviceID(s Store) (string, error) {
	if id, ok, err := s.Get(KeyDeviceID); err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	} else if ok {
		if _, perr := uuid.Parse(id); perr == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := s.Set(KeyDeviceID, id); err != nil {
		return id, fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}
