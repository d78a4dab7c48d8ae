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
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		want  []int
		size  int
		limit int
	}{
		{name: "empty", size: 0, limit: 2048, want: []int{0}},
		{name: "fits the command", size: 2046, limit: 2048, want: []int{2046}},
		{name: "one byte over", size: 2047, limit: 2048, want: []int{2046, 1}},
		{name: "five thousand", size: 5000, limit: 2048, want: []int{2046, 2048, 906}},
		{name: "usb", size: 70000, limit: 32768, want: []int{32766, 32768, 4466}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := make([]byte, tt.size)
			for i := range data {
				data[i] = byte(i)
			}
			chunks := splitChunks(data, tt.limit)

			sizes := make([]int, len(chunks))
			for i, c := range chunks {
				sizes[i] = len(c)
			}
			assert.Equal(t, tt.want, sizes)
			assert.True(t, bytes.Equal(data, bytes.Join(chunks, nil)), "chunks reassemble to the input")
		})
	}
}

func TestTransfer_SkipsReplayedBytes(t *testing.T) {
	t.Parallel()

	var sink bytes.Buffer
	var events []Progress
	tr := newTransfer(RegisterImage, 9, &sink, func(p Progress) { events = append(events, p) })

	require.NoError(t, tr.write([]byte("abc")))
	require.NoError(t, tr.write([]byte("def")))

	// Replay from the start: the first six bytes are already delivered.
	tr.restart()
	require.NoError(t, tr.write([]byte("abc")))
	require.NoError(t, tr.write([]byte("defg")))
	require.NoError(t, tr.write([]byte("hi")))

	assert.Equal(t, "abcdefghi", sink.String())
	assert.Equal(t, int64(9), tr.done)
	require.Len(t, events, 4)
	assert.Equal(t, int64(7), events[2].Done)
	assert.Equal(t, int64(9), events[3].Total)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

func TestTransfer_SinkErrors(t *testing.T) {
	t.Parallel()

	tr := newTransfer(RegisterThumbnail, 0, shortWriter{}, nil)
	err := tr.write([]byte("four"))
	require.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, int64(2), tr.done)

	boom := errors.New("boom")
	tr = newTransfer(RegisterThumbnail, 0, errWriter{boom}, nil)
	require.ErrorIs(t, tr.write([]byte("x")), boom)
}

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestTransfer_Advance(t *testing.T) {
	t.Parallel()

	var last Progress
	tr := newTransfer(RegisterUploadData, 100, nil, func(p Progress) { last = p })
	tr.advance(60)
	tr.advance(40)
	assert.Equal(t, Progress{Register: RegisterUploadData, Done: 100, Total: 100}, last)
	assert.InDelta(t, 1.0, last.Fraction(), 1e-9)
	assert.Zero(t, Progress{Done: 5}.Fraction())
}

func TestParseItemInfo(t *testing.T) {
	t.Parallel()

	block := make([]byte, 0, itemInfoSize)
	for _, w := range []uint32{120000, 4800, 0, 3, 1, 86400, 2} {
		block = binary.LittleEndian.AppendUint32(block, w)
	}
	block = append(block, 0, 0, 0, 0)

	info, err := parseItemInfo(block)
	require.NoError(t, err)
	assert.Equal(t, &ItemInfo{
		Size:          120000,
		PreviewSize:   4800,
		Resolution:    3,
		Locked:        true,
		Date:          86400,
		AnimationType: 2,
	}, info)

	_, err = parseItemInfo(block[:27])
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestSplitFolder(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"/":                {},
		"":                 {},
		`\`:                {},
		"/DCIM":            {"DCIM"},
		"DCIM/100SIERR/":   {"DCIM", "100SIERR"},
		`\DCIM\\100SIERR`:  {"DCIM", "100SIERR"},
		"/./DCIM/./":       {"DCIM"},
		"/DCIM/../100SIER": {"DCIM", "..", "100SIER"},
	}
	for in, want := range tests {
		assert.Equal(t, want, splitFolder(in), in)
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	multi := map[Kind]bool{KindCommand: true, KindData: true, KindDataEnd: true}
	for _, k := range []Kind{
		KindNUL, KindData, KindDataEnd, KindENQ, KindACK, KindInvalid,
		KindNAK, KindCancel, KindCommand, KindWrongSpeed, KindSessionError, KindSessionEnd,
	} {
		assert.True(t, k.IsKnown(), k.String())
		assert.Equal(t, multi[k], k.IsMultiByte(), k.String())
		assert.NotContains(t, k.String(), "0x")
	}

	assert.False(t, Kind(0x42).IsKnown())
	assert.Equal(t, "0x42", Kind(0x42).String())
	assert.True(t, KindWrongSpeed.IsSessionFault())
	assert.False(t, KindCancel.IsSessionFault())
}

func TestPacket_Equal(t *testing.T) {
	t.Parallel()

	a := NewData(1, []byte{1, 2}, false)
	assert.True(t, a.Equal(NewData(1, []byte{1, 2}, false)))
	assert.False(t, a.Equal(NewData(2, []byte{1, 2}, false)), "sequence differs")
	assert.False(t, a.Equal(NewData(1, []byte{1, 2}, true)), "kind differs")
	assert.False(t, a.Equal(NewData(1, []byte{1, 3}, false)), "payload differs")
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Packet)(nil).Equal(nil))
	assert.True(t, Control(KindACK).Equal(&Packet{Kind: KindACK, Subtype: 9}))

	assert.Equal(t, "DATA[01] 2 bytes", a.String())
	assert.Equal(t, "NAK", Control(KindNAK).String())
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "established", StateEstablished.String())
	assert.Equal(t, "state(9)", SessionState(9).String())
	assert.Equal(t, "escaped", FramingEscaped.String())
	assert.Equal(t, "framing(7)", Framing(7).String())
}

func TestProfile_Selection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ProfileUSB, ProfileForTransport(TransportUSB))
	assert.Equal(t, ProfileSerial, ProfileForTransport(TransportSerial))
	assert.Equal(t, SubtypeFirstCommand, ProfileSerial.commandSubtype(true))
	assert.Equal(t, SubtypeCommand, ProfileSerial.commandSubtype(false))
	assert.Equal(t, SubtypeCommand, ProfileUSB.commandSubtype(true))
	assert.Equal(t, opGetStringExt, ProfileUSB.bulkOpcode())
	assert.Equal(t, opGetString, ProfileSerialEscaped.bulkOpcode())
}
