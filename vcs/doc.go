/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package vcs wraps the go-git operations a fix run needs against the
// workspace a CI runner checked out. A Repository is opened with a GitHub
// token source and exposes:
//   - AddRemote, Fetch and Checkout to move the workspace onto the head
//     branch of a pull request.
//   - IsDirty, AddConfig, Add, Commit and Push to record and publish the
//     normalized files.
//
// Fetches and pushes authenticate with the token as an x-access-token basic
// auth password, the form GitHub accepts for installation and workflow
// tokens. Pushes are never forced.
package vcs
