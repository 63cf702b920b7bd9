// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Command protocoler decodes hex or base64 payloads with protocol documents.
package main

func main() {
	execute()
}
