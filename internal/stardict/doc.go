// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stardict reads the files that make up a Stardict dictionary.
//
// A dictionary is described by an .ifo file and is accompanied by:
//  1. An .idx file (optionally gzipped) listing headwords with the offset and
//     size of their article in the .dict file.
//  2. A .dict file (optionally dictzip compressed) holding article data.
//  3. An optional .syn file mapping synonyms to .idx ordinals.
//  4. An optional res/ directory holding resource files (images, sounds)
//     referenced from articles.
//
// The format is documented at
// https://github.com/huzheng001/stardict-3/blob/master/dict/doc/StarDictFileFormat
package stardict
