// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testutil

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// AssertJSONRecords parses output as a JSON array of objects and checks
// its length.
func AssertJSONRecords(t *testing.T, output string, expectedCount int) []map[string]interface{} {
	t.Helper()

	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &records); err != nil {
		t.Fatalf("Output is not a JSON array of objects: %v\n%s", err, output)
	}
	if len(records) != expectedCount {
		t.Errorf("Expected %d records, got %d", expectedCount, len(records))
	}
	return records
}

// AssertCSVOutput parses output as CSV with header and checks the number of
// data rows.
func AssertCSVOutput(t *testing.T, output string, header []string, expectedRows int) [][]string {
	t.Helper()

	rows, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v\n%s", err, output)
	}
	if len(rows) == 0 {
		t.Fatal("CSV output is empty")
	}
	if strings.Join(rows[0], ",") != strings.Join(header, ",") {
		t.Errorf("CSV header = %v, want %v", rows[0], header)
	}
	if got := len(rows) - 1; got != expectedRows {
		t.Errorf("Expected %d CSV rows, got %d", expectedRows, got)
	}
	return rows[1:]
}

// AssertMetadataFile finds the newest fetch metadata file in dir and
// validates its required fields.
func AssertMetadataFile(t *testing.T, dir string, endpoint string) map[string]interface{} {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "fetch-metadata-*.json"))
	if err != nil {
		t.Fatalf("Failed to glob metadata files: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("No metadata file found")
	}
	sort.Strings(matches)

	data, err := os.ReadFile(matches[len(matches)-1])
	if err != nil {
		t.Fatalf("Failed to read metadata file: %v", err)
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		t.Fatalf("Invalid metadata JSON: %v", err)
	}

	for _, field := range []string{"otco_version", "fetch_id", "parameters", "results", "incremental"} {
		if _, ok := metadata[field]; !ok {
			t.Errorf("Missing required metadata field: %s", field)
		}
	}

	params, _ := metadata["parameters"].(map[string]interface{})
	if got := params["endpoint"]; got != endpoint {
		t.Errorf("metadata endpoint = %v, want %s", got, endpoint)
	}
	return metadata
}

// AssertContainsString checks if a string contains a substring
func AssertContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected string to contain %q, got: %s", needle, haystack)
	}
}

// AssertNotContainsString checks if a string does not contain a substring
func AssertNotContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Errorf("Expected string to NOT contain %q, got: %s", needle, haystack)
	}
}

// AssertFilePermissions checks file has expected permissions
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}

	mode := info.Mode().Perm()
	if mode != expectedMode {
		t.Errorf("Expected file mode %v, got %v", expectedMode, mode)
	}
}
