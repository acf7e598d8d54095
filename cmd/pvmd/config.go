/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/pvm/pkg/logger"
)

var (
	errNoInput           = errors.New("pvmd: config.input must be set")
	errUnknownViewType   = errors.New("pvmd: unknown view type")
	errViewMissingName   = errors.New("pvmd: view is missing a name")
	errDuplicateViewName = errors.New("pvmd: duplicate view name")
	errCSVMissingDir     = errors.New("pvmd: csvbundle view requires dir")
	errGraphDBMissingDSN = errors.New("pvmd: graphdb view requires dsn")
	errNATSMissingURL    = errors.New("pvmd: natsview requires url")
	errNATSMissingStream = errors.New("pvmd: natsview requires stream")
)

// ViewConfig describes one configured consumer instance. Only the fields
// relevant to Type are required; the rest are ignored.
type ViewConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`

	// csvbundle
	Dir string `json:"dir,omitempty"`

	// script
	Path     string `json:"path,omitempty"`
	Template string `json:"template,omitempty"`

	// graphdb
	DSN string `json:"dsn,omitempty"`

	// natsview
	URL    string `json:"url,omitempty"`
	Stream string `json:"stream,omitempty"`
}

func (v ViewConfig) validate() error {
	if v.Name == "" {
		return errViewMissingName
	}

	switch v.Type {
	case viewTypeCSVBundle:
		if v.Dir == "" {
			return fmt.Errorf("%w: view %q", errCSVMissingDir, v.Name)
		}
	case viewTypeScript:
		// Path empty means stdout; always valid.
	case viewTypeGraphDB:
		if v.DSN == "" {
			return fmt.Errorf("%w: view %q", errGraphDBMissingDSN, v.Name)
		}
	case viewTypeNATS:
		if v.URL == "" {
			return fmt.Errorf("%w: view %q", errNATSMissingURL, v.Name)
		}

		if v.Stream == "" {
			return fmt.Errorf("%w: view %q", errNATSMissingStream, v.Name)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownViewType, v.Type)
	}

	return nil
}

// Config is the top-level pvmd configuration document, loaded by
// pkg/config from a JSON file or the environment.
type Config struct {
	ServiceName string         `json:"service_name"`
	Input       string         `json:"input"`
	RunID       string         `json:"run_id"`
	Logging     *logger.Config `json:"logging,omitempty"`
	Workers     int            `json:"workers,omitempty"`
	Views       []ViewConfig   `json:"views,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errNoInput
	}

	if c.ServiceName == "" {
		c.ServiceName = "pvmd"
	}

	if c.RunID == "" {
		c.RunID = "default"
	}

	seen := make(map[string]struct{}, len(c.Views))

	for _, v := range c.Views {
		if err := v.validate(); err != nil {
			return err
		}

		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("%w: %q", errDuplicateViewName, v.Name)
		}

		seen[v.Name] = struct{}{}
	}

	return nil
}

// writeConfig persists cfg back to path as indented JSON, used by
// "views create" to attach a new view instance to the on-disk config.
func writeConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("pvmd: marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pvmd: write config %s: %w", path, err)
	}

	return nil
}
