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

// Command pvmd hosts the provenance virtual machine: it ingests an audit
// event stream and fans the resulting mutations out to a set of configured
// views.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carverauto/pvm/pkg/config"
	"github.com/carverauto/pvm/pkg/lifecycle"
)

var errMissingSubcommand = errors.New("pvmd: expected a subcommand (init, run, views)")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errMissingSubcommand
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "run":
		return runRun(args[1:])
	case "views":
		return runViews(args[1:])
	default:
		return fmt.Errorf("%w: got %q", errMissingSubcommand, args[0])
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	configPath := fs.String("config", "/etc/pvmd/config.json", "path to pvmd config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	ctx := context.Background()

	var cfg Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return nil, fmt.Errorf("pvmd: load config: %w", err)
	}

	return &cfg, nil
}

// runInit validates the configured document and exits without starting the
// pipeline.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)

	if _, err := loadConfig(fs, args); err != nil {
		return err
	}

	fmt.Println("config OK")

	return nil
}

// runRun starts the ingest-and-view pipeline and blocks until it drains the
// configured input or a shutdown signal arrives.
func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)

	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	log, err := lifecycle.CreateComponentLogger(cfg.ServiceName, cfg.Logging)
	if err != nil {
		return fmt.Errorf("pvmd: create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: cfg.ServiceName,
		Service:     p,
		Logger:      log,
	})
}

func runViews(args []string) error {
	if len(args) == 0 {
		return errMissingSubcommand
	}

	switch args[0] {
	case "list":
		return runViewsList()
	case "create":
		return runViewsCreate(args[1:])
	case "ls-instances":
		return runViewsLSInstances(args[1:])
	default:
		return fmt.Errorf("%w: got \"views %s\"", errMissingSubcommand, args[0])
	}
}

func runViewsList() error {
	for _, t := range viewTypes {
		fmt.Println(t)
	}

	return nil
}

var errViewsCreateUsage = errors.New(
	"pvmd: views create -config <path> -name <name> -type <csvbundle|script|graphdb|nats> [-dir d] [-path p] [-dsn d] [-url u] [-stream s]")

// runViewsCreate attaches a new configured view instance to the pvmd config
// file before the pipeline is next run.
func runViewsCreate(args []string) error {
	fs := flag.NewFlagSet("views create", flag.ContinueOnError)
	configPath := fs.String("config", "/etc/pvmd/config.json", "path to pvmd config file")
	name := fs.String("name", "", "view instance name")
	typ := fs.String("type", "", "view type")
	dir := fs.String("dir", "", "csvbundle output directory")
	path := fs.String("path", "", "script output path (stdout if empty)")
	tmpl := fs.String("template", "", "script template override")
	dsn := fs.String("dsn", "", "graphdb postgres DSN")
	natsURL := fs.String("url", "", "natsview NATS URL")
	stream := fs.String("stream", "", "natsview JetStream stream name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" || *typ == "" {
		return errViewsCreateUsage
	}

	ctx := context.Background()

	var cfg Config

	loader := config.NewConfig(nil)
	if err := loader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("pvmd: load config: %w", err)
	}

	vc := ViewConfig{
		Name: *name, Type: *typ, Dir: *dir, Path: *path, Template: *tmpl,
		DSN: *dsn, URL: *natsURL, Stream: *stream,
	}
	if err := vc.validate(); err != nil {
		return err
	}

	cfg.Views = append(cfg.Views, vc)

	return writeConfig(*configPath, &cfg)
}

func runViewsLSInstances(args []string) error {
	fs := flag.NewFlagSet("views ls-instances", flag.ContinueOnError)

	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	for _, v := range cfg.Views {
		fmt.Printf("%s\t%s\n", v.Name, v.Type)
	}

	return nil
}
