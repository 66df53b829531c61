// Package configs provides embedded configuration templates for
// codegraph.
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//   - Homebrew installations
//
// The templates are used by:
//   - cmd/codegraph/cmd/config.go → creates user config at ~/.config/codegraph/config.yaml
//
// No command writes ProjectConfigTemplate; a project .codegraph.yaml is
// created by hand.
//
// Template files:
//   - project-config.example.yaml: Project-specific settings (store dir, search weights, HNSW)
//   - user-config.example.yaml: Machine-specific settings (embeddings provider, Ollama host, server)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/codegraph/config.yaml)
//  3. Project config (.codegraph.yaml)
//  4. Environment variables (CODEGRAPH_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `codegraph config init` at ~/.config/codegraph/config.yaml
// Contains: machine-specific settings like the embeddings provider, Ollama host.
// Use case: settings that apply to all projects on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Lives at: .codegraph.yaml in the project root (no command writes it)
// Contains: project-specific settings like store.dir, search weights, HNSW params.
// Use case: settings that are version-controlled with the project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
