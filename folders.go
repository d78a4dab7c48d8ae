// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package sierra

import (
	"context"
	"strings"
)

// FolderSupported reports whether the camera has folder addressing. The
// answer is cached for the session.
func (c *Camera) FolderSupported(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.folderSupported(ctx)
	return ok, c.wrap(err)
}

func (c *Camera) folderSupported(ctx context.Context) (bool, error) {
	switch c.session.folders {
	case foldersSupported:
		return true, nil
	case foldersUnsupported:
		return false, nil
	case foldersUnknown:
	}

	_, err := c.getInt(ctx, RegisterFolderSelect)
	switch {
	case err == nil:
		c.session.folders = foldersSupported
	case IsNotSupported(err):
		c.session.folders = foldersUnsupported
	default:
		return false, err
	}
	return c.session.folders == foldersSupported, nil
}

// Folder returns the current folder, "/" at the root.
func (c *Camera) Folder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.folder == "" {
		return "/"
	}
	return c.session.folder
}

// ChangeFolder makes path the current folder. Navigation always starts at
// the root and descends one component at a time. On cameras without folder
// support only "/" is accepted.
func (c *Camera) ChangeFolder(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.changeFolder(ctx, path))
}

func (c *Camera) changeFolder(ctx context.Context, path string) error {
	parts := splitFolder(path)
	target := "/" + strings.Join(parts, "/")
	if target == "/" {
		target = ""
	}
	if target == c.session.folder && c.session.folders == foldersSupported {
		return nil
	}

	ok, err := c.folderSupported(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if len(parts) == 0 {
			return nil
		}
		return &RegisterError{Op: "change folder", Register: RegisterFolderName, Err: ErrRegisterNotSupported}
	}

	// Leave the session at the root if a component fails.
	c.session.folder = ""
	if err := c.setString(ctx, RegisterFolderName, []byte{'\\'}); err != nil {
		return err
	}
	for i, part := range parts {
		if err := c.setString(ctx, RegisterFolderName, []byte(part)); err != nil {
			return err
		}
		c.session.folder = "/" + strings.Join(parts[:i+1], "/")
	}
	Debugf("current folder %q", c.session.folder)
	return nil
}

// splitFolder breaks a slash or backslash separated path into components.
func splitFolder(path string) []string {
	fields := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	parts := fields[:0]
	for _, f := range fields {
		if f != "." {
			parts = append(parts, f)
		}
	}
	return parts
}
