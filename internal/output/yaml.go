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

package output

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/sirseerhq/sirseer-otco/internal/record"
	"gopkg.in/yaml.v3"
)

// YAMLRenderer writes a YAML sequence of mappings. The document is built as
// a yaml.Node tree so field order survives.
type YAMLRenderer struct{}

func (YAMLRenderer) Render(w io.Writer, rs *record.RecordSet) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if rs.Len() == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, r := range rs.Records {
		seq.Content = append(seq.Content, yamlNode(r))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

func yamlNode(v any) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return scalar("!!null", "null")
	case bool:
		return scalar("!!bool", strconv.FormatBool(t))
	case json.Number:
		if _, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return scalar("!!int", string(t))
		}
		if _, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return scalar("!!int", string(t))
		}
		// Readers resolve an out-of-range float as a string, so it has no
		// YAML form that reads back as the same number.
		if _, err := strconv.ParseFloat(string(t), 64); err == nil {
			return scalar("!!float", string(t))
		}
		return scalar("!!str", record.Unrenderable)
	case string:
		return scalar("!!str", strings.ToValidUTF8(t, "\uFFFD"))
	case *record.Record:
		if t == nil {
			return scalar("!!null", "null")
		}
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			m.Content = append(m.Content, scalar("!!str", strings.ToValidUTF8(k, "\uFFFD")), yamlNode(val))
		}
		if len(m.Content) == 0 {
			m.Style = yaml.FlowStyle
		}
		return m
	case []any:
		s := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			s.Content = append(s.Content, yamlNode(e))
		}
		if len(s.Content) == 0 {
			s.Style = yaml.FlowStyle
		}
		return s
	}
	return scalar("!!str", record.Unrenderable)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
