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

// Package output renders a RecordSet in one of several interchangeable
// formats and writes it to a stream or a file.
//
// Every format goes through the same Renderer interface, so callers never
// branch on the format themselves:
//
//	format, err := output.ParseFormat("csv")
//	if err != nil {
//	    return err
//	}
//	spec, _ := projection.Parse("number,title", "-number", 10)
//	err = output.ProjectAndRender(ctx, rs, spec, format, output.NewStreamSink(os.Stdout), output.Options{})
//
// File sinks write to a temporary file in the destination directory and
// rename it into place only after a complete render, so a failed or
// interrupted run leaves any previous file untouched.
package output
