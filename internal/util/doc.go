// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across the application.
//
// String utilities handle UTF-8 safe truncation for display, file
// operations provide crash-safe atomic writes, and conversion helpers
// wrap strconv for the common cases.
package util
