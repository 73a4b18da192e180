// Package testsupport provides helpers shared by package tests: temp-dir
// configs, patterned file writers, and an opened tracker.
package testsupport
