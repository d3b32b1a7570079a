// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/docpipe/pdf-imgx/logger"
)

type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

type Config struct {
	MaxConcurrentExtracts int           `validate:"min=1,max=10"`
	ExtractTimeout        time.Duration `validate:"required"`
	ParsingMode           ParsingMode   `validate:"oneof=strict best-effort"`
	DebugOn               bool
	Logger                logger.LogFunc
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentExtracts: 5,
		ExtractTimeout:        30 * time.Second,
		ParsingMode:           BestEffort,
		DebugOn:               false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}
