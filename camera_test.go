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
	"sync"
	"testing"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
	virt "github.com/ZaparooProject/go-sierra/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *sierra.RetryConfig {
	return &sierra.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
		RetryTimeout:      time.Second,
	}
}

// connectedCamera returns a camera with an established session on a fresh
// virtual camera speaking profile.
func connectedCamera(
	t *testing.T, profile sierra.Profile, opts ...sierra.Option,
) (*sierra.Camera, *virt.VirtualCamera) {
	t.Helper()

	vc := virt.NewVirtualCamera(profile)
	opts = append([]sierra.Option{sierra.WithProfile(profile), sierra.WithRetryConfig(fastRetry())}, opts...)
	cam, err := sierra.New(vc, opts...)
	require.NoError(t, err)
	require.NoError(t, cam.Connect(context.Background()))
	return cam, vc
}

func TestConnect_SerialHandshake(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	assert.Equal(t, sierra.StateEstablished, cam.State())
	assert.Equal(t, 1, vc.Handshakes())
	assert.True(t, vc.InSession())
	assert.Equal(t, 19200, vc.HostRate())
	assert.Equal(t, sierra.DefaultTimeout, vc.Timeout())
	assert.Equal(t, []sierra.Kind{sierra.KindNUL}, vc.ReceivedKinds())
}

func TestConnect_NoAnswer(t *testing.T) {
	t.Parallel()

	mock := sierra.NewMockTransport()
	cam, err := sierra.New(mock, sierra.WithRetryConfig(fastRetry()))
	require.NoError(t, err)

	err = cam.Connect(context.Background())
	require.ErrorIs(t, err, sierra.ErrConnectFailed)
	require.ErrorIs(t, err, sierra.ErrTransportTimeout)
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, mock.Written(), "three NUL probes")
	assert.Equal(t, []int{19200}, mock.BitRates())
	assert.Equal(t, sierra.StateDisconnected, cam.State())
	assert.True(t, sierra.HasTrace(err))
}

func TestConnect_WrongAnswerIsRetried(t *testing.T) {
	t.Parallel()

	mock := sierra.NewMockTransport()
	mock.QueueRead(byte(sierra.KindACK))
	mock.QueueRead(byte(sierra.KindNAK))
	cam, err := sierra.New(mock, sierra.WithRetryConfig(fastRetry()))
	require.NoError(t, err)

	require.NoError(t, cam.Connect(context.Background()))
	assert.Equal(t, []byte{0x00, 0x00}, mock.Written())
	assert.Equal(t, sierra.StateEstablished, cam.State())
}

func TestConnect_CancelledContext(t *testing.T) {
	t.Parallel()

	mock := sierra.NewMockTransport()
	cam, err := sierra.New(mock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = cam.Connect(ctx)
	require.ErrorIs(t, err, sierra.ErrConnectFailed)
	require.ErrorIs(t, err, sierra.ErrCancelled)
	assert.Empty(t, mock.Written())
}

func TestConnect_USBNeedsNoHandshake(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileUSB)
	assert.Equal(t, sierra.StateEstablished, cam.State())
	assert.Zero(t, vc.Handshakes())
	assert.Empty(t, vc.Received())

	level, err := cam.BatteryLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, level)
	assert.Equal(t, sierra.SubtypeCommand, vc.Commands()[0].Subtype)
	assert.Zero(t, vc.SubtypeErrors())
}

func TestConnect_ProfileFromTransport(t *testing.T) {
	t.Parallel()

	vc := virt.NewVirtualCamera(sierra.ProfileUSB)
	cam, err := sierra.New(vc)
	require.NoError(t, err)
	assert.Equal(t, sierra.ProfileUSB, cam.Profile())
	assert.Same(t, sierra.Transport(vc), cam.Transport())
}

func TestSession_FirstCommandSubtype(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	ctx := context.Background()

	for range 3 {
		_, err := cam.NumItems(ctx)
		require.NoError(t, err)
	}

	cmds := vc.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, sierra.SubtypeFirstCommand, cmds[0].Subtype)
	assert.Equal(t, sierra.SubtypeCommand, cmds[1].Subtype)
	assert.Equal(t, sierra.SubtypeCommand, cmds[2].Subtype)
	assert.Zero(t, vc.SubtypeErrors())

	// A new session flags its first command again.
	cam.Disconnect(ctx)
	require.NoError(t, cam.Connect(ctx))
	vc.ClearReceived()
	_, err := cam.NumItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, sierra.SubtypeFirstCommand, vc.Commands()[0].Subtype)
	assert.Zero(t, vc.SubtypeErrors())
}

func TestSession_NotConnected(t *testing.T) {
	t.Parallel()

	vc := virt.NewVirtualCamera(sierra.ProfileSerial)
	cam, err := sierra.New(vc)
	require.NoError(t, err)

	_, err = cam.GetInt(context.Background(), sierra.RegisterBattery)
	require.ErrorIs(t, err, sierra.ErrNotConnected)
	assert.Empty(t, vc.Received(), "nothing reaches the wire without a session")
}

func TestSession_RecoversFromSessionFaults(t *testing.T) {
	t.Parallel()

	for _, fault := range []virt.Fault{virt.FaultSessionEnd, virt.FaultSessionError, virt.FaultWrongSpeed} {
		cam, vc := connectedCamera(t, sierra.ProfileSerial)
		ctx := context.Background()

		_, err := cam.BatteryLevel(ctx)
		require.NoError(t, err)

		vc.InjectFault(fault, 1)
		free, err := cam.FreeMemory(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(4<<20), free)

		assert.Equal(t, 1, cam.Recoveries())
		assert.Equal(t, 2, vc.Handshakes())
		cmds := vc.Commands()
		require.Len(t, cmds, 3)
		assert.Equal(t, cmds[1].Payload, cmds[2].Payload, "the same command is replayed")
		assert.Equal(t, sierra.SubtypeFirstCommand, cmds[2].Subtype)
		assert.Zero(t, vc.SubtypeErrors())
	}
}

func TestSession_RecoveryIsBounded(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	ctx := context.Background()

	vc.InjectFault(virt.FaultSessionEnd, 3)
	_, err := cam.FreeMemory(ctx)
	require.ErrorIs(t, err, sierra.ErrSessionInvalidated)

	var se *sierra.SessionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sierra.KindSessionEnd, se.Kind)
	assert.Equal(t, sierra.SessionRecoveries, cam.Recoveries())
	assert.Equal(t, 1+sierra.SessionRecoveries, vc.Handshakes())

	// The camera dropped the session again; the next call recovers it.
	_, err = cam.FreeMemory(ctx)
	require.NoError(t, err)
	assert.Equal(t, sierra.SessionRecoveries+1, cam.Recoveries())
}

func TestSession_Disconnect(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	ctx := context.Background()

	cam.Disconnect(ctx)
	assert.Equal(t, sierra.StateDisconnected, cam.State())
	assert.False(t, vc.InSession())
	assert.Equal(t, []sierra.Action{sierra.ActionEnd}, vc.Actions())

	_, err := cam.BatteryLevel(ctx)
	require.ErrorIs(t, err, sierra.ErrNotConnected)

	// Disconnecting twice sends nothing more.
	vc.ClearReceived()
	cam.Disconnect(ctx)
	assert.Empty(t, vc.Received())
}

func TestSession_DisconnectIgnoresSilentCamera(t *testing.T) {
	t.Parallel()

	mock := sierra.NewMockTransport()
	mock.QueueRead(byte(sierra.KindNAK))
	cam, err := sierra.New(mock, sierra.WithRetryConfig(fastRetry()))
	require.NoError(t, err)
	require.NoError(t, cam.Connect(context.Background()))

	cam.Disconnect(context.Background())
	assert.Equal(t, sierra.StateDisconnected, cam.State())
	assert.Greater(t, len(mock.Written()), 1, "END was attempted")
}

func TestSession_Close(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	require.NoError(t, cam.Close())
	assert.False(t, vc.IsConnected())
	assert.Equal(t, []sierra.Action{sierra.ActionEnd}, vc.Actions())
	assert.Equal(t, sierra.StateDisconnected, cam.State())
}

func TestSession_SetTimeout(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	require.NoError(t, cam.SetTimeout(750*time.Millisecond))
	assert.Equal(t, 750*time.Millisecond, vc.Timeout())
	require.ErrorIs(t, cam.SetTimeout(0), sierra.ErrInvalidParameter)
}

func TestSpeed_NegotiatedOnConnect(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial, sierra.WithBitRate(115200))
	ctx := context.Background()

	assert.Equal(t, 115200, cam.BitRate())
	assert.Equal(t, 115200, vc.CameraRate())
	assert.Equal(t, 115200, vc.HostRate())

	cmds := vc.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []byte{0x00, byte(sierra.RegisterBitRate), 5, 0, 0, 0}, cmds[0].Payload)

	level, err := cam.BatteryLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, level)

	cam.Disconnect(ctx)
	assert.Equal(t, 19200, vc.HostRate(), "the line is left at the default speed")
	assert.Equal(t, 19200, vc.CameraRate())
}

func TestSpeed_SessionLossFallsBackToDefault(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial, sierra.WithBitRate(57600))
	ctx := context.Background()

	vc.InjectFault(virt.FaultWrongSpeed, 1)
	_, err := cam.NumItems(ctx)
	require.NoError(t, err)

	assert.Equal(t, 19200, cam.BitRate())
	assert.Equal(t, 19200, vc.HostRate())
	assert.Equal(t, 19200, vc.CameraRate())

	require.NoError(t, cam.SetSpeed(ctx, 57600))
	assert.Equal(t, 57600, vc.CameraRate())
	assert.Equal(t, 57600, cam.BitRate())
}

func TestSpeed_Errors(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	ctx := context.Background()

	require.ErrorIs(t, cam.SetSpeed(ctx, 14400), sierra.ErrInvalidParameter)

	vc.ClearReceived()
	require.NoError(t, cam.SetSpeed(ctx, 19200))
	assert.Empty(t, vc.Received(), "the current speed needs no negotiation")

	vc.InjectFault(virt.FaultNAK, 3)
	err := cam.SetSpeed(ctx, 38400)
	require.ErrorIs(t, err, sierra.ErrRejected)
	assert.Equal(t, 19200, vc.HostRate(), "the host keeps its speed when the camera refuses")
	assert.Equal(t, 19200, cam.BitRate())
}

func TestSpeed_USBIgnoresBitRate(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileUSB)
	require.NoError(t, cam.SetSpeed(context.Background(), 115200))
	assert.Empty(t, vc.Received())
	assert.Equal(t, []int{9600, 19200, 38400, 57600, 115200}, sierra.SupportedBitRates())
}

func TestCamera_ConcurrentCallers(t *testing.T) {
	t.Parallel()

	cam, vc := connectedCamera(t, sierra.ProfileSerial)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				if _, err := cam.BatteryLevel(ctx); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, vc.Commands(), 20)
	assert.Zero(t, vc.SubtypeErrors())
}

func TestCamera_TraceOnFailure(t *testing.T) {
	t.Parallel()

	cam, _ := connectedCamera(t, sierra.ProfileSerial)

	_, err := cam.GetBytes(context.Background(), sierra.Register(0x60), 0)
	require.ErrorIs(t, err, sierra.ErrRegisterNotSupported)

	te := sierra.GetTrace(err)
	require.NotNil(t, te)
	assert.NotEmpty(t, te.Trace)
	assert.Contains(t, te.FormatTrace(), "(INVALID)")
	assert.Equal(t, "serial", te.Transport)
}
