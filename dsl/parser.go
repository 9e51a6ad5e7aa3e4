/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dsl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/fs"
	"github.com/rulego/aop/utils/json"
	"gopkg.in/yaml.v3"
)

// Parser decodes and encodes aspect definitions.
type Parser interface {
	Decode(data []byte) (*Definition, error)
	Encode(def *Definition) ([]byte, error)
}

var (
	_ Parser = (*YamlParser)(nil)
	_ Parser = (*JsonParser)(nil)
)

var validate = validator.New()

// YamlParser Yaml
type YamlParser struct {
}

// Decode 通过 yaml 解析切面配置并校验
func (p *YamlParser) Decode(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, types.NewConfigurationError("dsl", "invalid yaml", err)
	}
	return &def, Validate(&def)
}

func (p *YamlParser) Encode(def *Definition) ([]byte, error) {
	return yaml.Marshal(def)
}

// JsonParser Json
type JsonParser struct {
}

// Decode 通过 json 解析切面配置并校验
func (p *JsonParser) Decode(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, types.NewConfigurationError("dsl", "invalid json", err)
	}
	return &def, Validate(&def)
}

func (p *JsonParser) Encode(def *Definition) ([]byte, error) {
	return json.Marshal(def)
}

// ParseYAML decodes a yaml definition.
func ParseYAML(data []byte) (*Definition, error) {
	return (&YamlParser{}).Decode(data)
}

// Load reads a definition file. Files ending in .json are decoded as json, others as yaml.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parser Parser = &YamlParser{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = &JsonParser{}
	}
	return parser.Decode(data)
}

// LoadDir 加载指定文件夹及其子文件夹所有切面配置（.yaml、.yml 与 .json 结尾文件）并合并
// 切面名称在所有文件中不能重复
func LoadDir(folderPath string) (*Definition, error) {
	paths, err := fs.FindFiles(folderPath, []string{"*.yaml", "*.yml", "*.json"})
	if err != nil {
		return nil, err
	}
	merged := &Definition{}
	for _, path := range paths {
		def, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		merged.Aspects = append(merged.Aspects, def.Aspects...)
	}
	return merged, Validate(merged)
}

// Validate checks the required fields and the duplicated names of a definition.
func Validate(def *Definition) error {
	if err := validate.Struct(def); err != nil {
		return types.NewConfigurationError("dsl", "invalid definition", err)
	}
	names := make(map[string]bool, len(def.Aspects))
	for _, a := range def.Aspects {
		if names[a.Name] {
			return types.NewConfigurationError(a.Name, "duplicated aspect name", nil)
		}
		names[a.Name] = true
	}
	return nil
}
