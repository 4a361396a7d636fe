// Package testutil holds helpers shared by package tests: captured loggers
// and temporary file trees.
package testutil
