package testutil

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertFileExists asserts that a file exists at the given path.
func AssertFileExists(t testing.TB, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		assert.Fail(t, "file does not exist", "expected file to exist: %s", path)
		return
	}
	require.NoError(t, err)
	assert.False(t, info.IsDir(), "expected file but got directory: %s", path)
}

// AssertFileNotExists asserts that no file exists at the given path.
func AssertFileNotExists(t testing.TB, path string) {
	t.Helper()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expected file to not exist: %s", path)
}

// AssertFileContains asserts that a file contains the expected substring.
func AssertFileContains(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// AssertJSONFileEquals asserts that a file holds JSON semantically equal to expected.
func AssertJSONFileEquals(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	var expectedDoc, actualDoc interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedDoc), "failed to parse expected JSON")
	require.NoError(t, json.Unmarshal(content, &actualDoc), "failed to parse JSON in %s", path)

	assert.Equal(t, expectedDoc, actualDoc, msgAndArgs...)
}

// AssertEventually asserts that a condition becomes true within a timeout.
// waitFor and tick are in milliseconds.
func AssertEventually(t testing.TB, condition func() bool, waitForMs, tickMs int, msgAndArgs ...interface{}) {
	t.Helper()

	waitFor := time.Duration(waitForMs) * time.Millisecond
	tick := time.Duration(tickMs) * time.Millisecond

	assert.Eventually(t, condition, waitFor, tick, msgAndArgs...)
}
