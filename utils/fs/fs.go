/*
 * Copyright 2023 The RuleGo Authors.
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

// Package fs finds configuration files on the local file system.
package fs

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// FindFiles 遍历 root 目录及其子目录，返回文件名匹配任一 patterns 的文件路径，按路径排序
// 匹配 excludedPatterns 的文件和子目录会被跳过
func FindFiles(root string, patterns []string, excludedPatterns ...string) ([]string, error) {
	if root == "" {
		root = "."
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && matchAny(d.Name(), excludedPatterns) {
				// 跳过该子目录
				return filepath.SkipDir
			}
			return nil
		}
		if matchAny(d.Name(), patterns) && !matchAny(d.Name(), excludedPatterns) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func matchAny(name string, patterns []string) bool {
	for _, item := range patterns {
		if matched, _ := filepath.Match(item, name); matched {
			return true
		}
	}
	return false
}
