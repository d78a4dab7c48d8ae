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

package sierra_test

import (
	"context"
	"testing"

	sierra "github.com/ZaparooProject/go-sierra"
	virt "github.com/ZaparooProject/go-sierra/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolders_Navigate(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	vc.EnableFolders("DCIM", "DCIM/100SIERR", "DCIM/101SIERR")
	ctx := context.Background()

	ok, err := cam.FolderSupported(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/", cam.Folder())

	require.NoError(t, cam.ChangeFolder(ctx, "/DCIM/100SIERR"))
	assert.Equal(t, "/DCIM/100SIERR", cam.Folder())
	assert.Equal(t, "/DCIM/100SIERR", vc.Folder())

	// Sibling folders are reached from the root again.
	require.NoError(t, cam.ChangeFolder(ctx, `\DCIM\101SIERR\`))
	assert.Equal(t, "/DCIM/101SIERR", cam.Folder())
	assert.Equal(t, "/DCIM/101SIERR", vc.Folder())

	vc.ClearReceived()
	require.NoError(t, cam.ChangeFolder(ctx, "DCIM/./101SIERR"))
	assert.Empty(t, vc.Received(), "already there")

	require.NoError(t, cam.ChangeFolder(ctx, "/"))
	assert.Equal(t, "/", cam.Folder())
	assert.Equal(t, "/", vc.Folder())
}

func TestFolders_ComponentPayloads(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	vc.EnableFolders("DCIM", "DCIM/100SIERR")
	ctx := context.Background()

	require.NoError(t, cam.ChangeFolder(ctx, "/DCIM/100SIERR"))

	var names []string
	for _, cmd := range vc.Commands() {
		if cmd.Payload[0] == 0x03 && sierra.Register(cmd.Payload[1]) == sierra.RegisterFolderName {
			names = append(names, string(cmd.Payload[2:]))
		}
	}
	assert.Equal(t, []string{`\`, "DCIM", "100SIERR"}, names)
}

func TestFolders_UnknownFolder(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	vc.EnableFolders("DCIM")
	ctx := context.Background()

	err := cam.ChangeFolder(ctx, "/DCIM/missing")
	require.ErrorIs(t, err, sierra.ErrRegisterNotSupported)
	assert.Equal(t, "/DCIM", cam.Folder(), "navigation stops at the last folder reached")
	assert.Equal(t, "/DCIM", vc.Folder())
}

func TestFolders_Unsupported(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	ctx := context.Background()

	ok, err := cam.FolderSupported(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	vc.ClearReceived()
	ok, err = cam.FolderSupported(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, vc.Received(), "the answer is cached for the session")

	require.NoError(t, cam.ChangeFolder(ctx, "/"))
	err = cam.ChangeFolder(ctx, "/DCIM")
	require.ErrorIs(t, err, sierra.ErrRegisterNotSupported)
	assert.Equal(t, "/", cam.Folder())
}

func TestFolders_ResetWithSession(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	vc.EnableFolders("DCIM")
	ctx := context.Background()

	require.NoError(t, cam.ChangeFolder(ctx, "/DCIM"))
	vc.InjectFault(virt.FaultSessionEnd, 1)
	_, err := cam.NumItems(ctx)
	require.NoError(t, err)

	assert.Equal(t, "/", cam.Folder())
	assert.Equal(t, "/", vc.Folder())
}
