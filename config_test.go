// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		shouldErr bool
	}{
		{
			name: "valid config",
			cfg: &Config{
				MaxConcurrentExtracts: 10,
				ExtractTimeout:        5 * time.Second,
				ParsingMode:           BestEffort,
			},
			shouldErr: false,
		},
		{
			name: "invalid MaxConcurrentExtracts (too low)",
			cfg: &Config{
				MaxConcurrentExtracts: 0,
				ExtractTimeout:        5 * time.Second,
				ParsingMode:           BestEffort,
			},
			shouldErr: true,
		},
		{
			name: "invalid MaxConcurrentExtracts (too high)",
			cfg: &Config{
				MaxConcurrentExtracts: 11,
				ExtractTimeout:        5 * time.Second,
				ParsingMode:           Strict,
			},
			shouldErr: true,
		},
		{
			name: "missing ExtractTimeout",
			cfg: &Config{
				MaxConcurrentExtracts: 10,
				ExtractTimeout:        0,
				ParsingMode:           BestEffort,
			},
			shouldErr: true,
		},
		{
			name: "invalid ParsingMode",
			cfg: &Config{
				MaxConcurrentExtracts: 10,
				ExtractTimeout:        5 * time.Second,
				ParsingMode:           "invalid-mode",
			},
			shouldErr: true,
		},
		{
			name:      "default config is valid",
			cfg:       NewDefaultConfig(),
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.shouldErr {
				assert.Error(t, err, "expected validation error")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}
