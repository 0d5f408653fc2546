// ollamachat - a terminal chat client for local Ollama models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaganParab02/ollamachat/internal/config"
	"github.com/JaganParab02/ollamachat/internal/controller"
	"github.com/JaganParab02/ollamachat/internal/history"
	"github.com/JaganParab02/ollamachat/internal/ollama"
	"github.com/JaganParab02/ollamachat/internal/store"
	"github.com/JaganParab02/ollamachat/internal/ui/chat"
	"github.com/JaganParab02/ollamachat/internal/voice"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", config.DefaultPath(), "path to the config file")
		modelName   = flag.String("model", "", "model to chat with (overrides config)")
		baseURL     = flag.String("url", "", "Ollama base URL (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ollamachat %s (%s)\n", Version, GitCommit)
		return
	}

	if err := run(*configPath, *modelName, *baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "ollamachat: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, modelName, baseURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if modelName != "" {
		cfg.Ollama.Model = modelName
	}
	if baseURL != "" {
		cfg.Ollama.BaseURL = baseURL
	}
	config.Set(cfg)

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:       cfg.Ollama.BaseURL,
		Timeout:       time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second,
		StreamTimeout: time.Duration(cfg.Ollama.StreamTimeoutSeconds) * time.Second,
		DefaultModel:  cfg.Ollama.Model,
	})

	st := store.New()
	ctrl := controller.New(st, client)

	var archive *history.Archive
	if cfg.History.Enabled {
		archive, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	var recognizer voice.Recognizer = voice.NullRecognizer{}
	if cfg.Voice.ListenCommand != "" {
		recognizer = &voice.CommandRecognizer{
			Command: cfg.Voice.ListenCommand,
			Args:    cfg.Voice.ListenArgs,
		}
	}
	var speaker voice.Speaker = voice.NullSpeaker{}
	if cfg.Voice.SpeakCommand != "" {
		speaker = &voice.CommandSpeaker{
			Command: cfg.Voice.SpeakCommand,
			Args:    cfg.Voice.SpeakArgs,
			Stdin:   cfg.Voice.SpeakStdin,
		}
	}

	// Hot-reload keeps the global config current; anything reading it
	// through config.Get sees changes without a restart.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go config.Watch(watchCtx, configPath, config.Set)

	m := chat.New(chat.Deps{
		Store:      st,
		Ctrl:       ctrl,
		Client:     client,
		Config:     cfg,
		Archive:    archive,
		Recognizer: recognizer,
		Speaker:    speaker,
	})

	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
