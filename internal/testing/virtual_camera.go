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

package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
	"github.com/ZaparooProject/go-sierra/internal/frame"
)

// Fault is a misbehavior the virtual camera applies to its next answer.
type Fault int

const (
	// FaultNone leaves the answer alone
	FaultNone Fault = iota
	// FaultSessionEnd answers SESSION_END and forgets the session
	FaultSessionEnd
	// FaultSessionError answers SESSION_ERROR and forgets the session
	FaultSessionError
	// FaultWrongSpeed answers WRONG_SPEED and forgets the session
	FaultWrongSpeed
	// FaultCorrupt sends the answer with a bad checksum
	FaultCorrupt
	// FaultDrop swallows the answer; a NAK brings it back
	FaultDrop
	// FaultNAK refuses the packet without acting on it
	FaultNAK
	// FaultCancel answers CANCEL without acting on the packet
	FaultCancel
	// FaultLostACK ignores the host's ACK during a bulk read and sends the
	// same DATA packet again
	FaultLostACK
)

const (
	uploadArmMagic = 0x0FEC000E
	defaultRate    = 19200
)

var rateCodes = map[uint32]int{1: 9600, 2: 19200, 3: 38400, 4: 57600, 5: 115200}

// VirtualItem is a picture stored on the virtual camera.
type VirtualItem struct {
	Filename   string
	Image      []byte
	Thumbnail  []byte
	Audio      []byte
	Date       uint32
	Resolution uint32
	Animation  uint32
	Locked     bool
}

type pendingSet struct {
	data []byte
	reg  sierra.Register
}

type outgoing struct {
	chunks [][]byte
	next   int
}

// VirtualCamera is a wire-level Sierra camera. It implements
// sierra.Transport, decoding everything the host writes and queueing its
// answers for the host to read. Reads never block: an empty queue is a
// timeout.
type VirtualCamera struct {
	ints        map[sierra.Register]uint32
	strings     map[sierra.Register][]byte
	unsupported map[sierra.Register]bool
	folders     map[string]bool
	pending     *pendingSet
	sending     *outgoing
	preview     []byte
	items       []*VirtualItem
	in          []byte
	out         []byte
	lastReply   []byte
	received    []*sierra.Packet
	actions     []sierra.Action
	faults      []Fault
	folder      string
	profile     sierra.Profile
	timeout     time.Duration
	hostRate    int
	cameraRate  int
	current     int
	handshakes  int
	subtypeErrs int
	mangle      Fault
	mu          sync.Mutex
	closed      bool
	session     bool
	expectFirst bool
	dataNoAck   bool
	uploadArmed bool
}

// NewVirtualCamera creates a camera speaking the given profile, with a
// charged battery and no pictures.
func NewVirtualCamera(profile sierra.Profile) *VirtualCamera {
	return &VirtualCamera{
		profile: profile,
		ints: map[sierra.Register]uint32{
			sierra.RegisterBattery:    80,
			sierra.RegisterFreeMemory: 4 << 20,
		},
		strings:     make(map[sierra.Register][]byte),
		unsupported: make(map[sierra.Register]bool),
		folders:     make(map[string]bool),
		folder:      "/",
		hostRate:    defaultRate,
		cameraRate:  defaultRate,
		session:     !profile.Handshake,
		expectFirst: true,
		timeout:     time.Second,
	}
}

// Transport interface

// Read returns queued answers; nothing queued is a timeout.
func (v *VirtualCamera) Read(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, sierra.ErrTransportClosed
	}
	if len(v.out) == 0 {
		return 0, sierra.ErrTransportTimeout
	}
	n := copy(p, v.out)
	v.out = v.out[n:]
	return n, nil
}

// Write feeds host bytes to the camera. Bytes sent at the wrong line speed
// are lost, as on a real serial link.
func (v *VirtualCamera) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, sierra.ErrTransportClosed
	}
	if v.profile.Handshake && v.hostRate != v.cameraRate {
		return len(p), nil
	}

	v.in = append(v.in, p...)
	for len(v.in) > 0 {
		r := bytes.NewReader(v.in)
		pkt, err := sierra.Decode(v.profile, r)
		if err != nil {
			var te *sierra.TruncatedError
			if errors.As(err, &te) {
				break
			}
			v.in = v.in[:0]
			v.emit(sierra.Control(sierra.KindNAK))
			break
		}
		v.in = v.in[len(v.in)-r.Len():]
		v.handle(pkt)
	}
	return len(p), nil
}

// SetTimeout implements sierra.Transport
func (v *VirtualCamera) SetTimeout(timeout time.Duration) error {
	v.mu.Lock()
	v.timeout = timeout
	v.mu.Unlock()
	return nil
}

// SetBitRate changes the host side of the line
func (v *VirtualCamera) SetBitRate(rate int) error {
	v.mu.Lock()
	v.hostRate = rate
	v.mu.Unlock()
	return nil
}

// Close implements sierra.Transport
func (v *VirtualCamera) Close() error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return nil
}

// IsConnected implements sierra.Transport
func (v *VirtualCamera) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Type reports a USB link for extended-bulk profiles and serial otherwise
func (v *VirtualCamera) Type() sierra.TransportType {
	if v.profile.ExtendedBulk {
		return sierra.TransportUSB
	}
	return sierra.TransportSerial
}

// Packet handling

func (v *VirtualCamera) handle(p *sierra.Packet) {
	v.received = append(v.received, p)
	v.mangle = FaultNone
	defer func() { v.mangle = FaultNone }()

	switch p.Kind {
	case sierra.KindNUL:
		if v.profile.Handshake {
			v.reset()
			v.session = true
			v.handshakes++
			v.emit(sierra.Control(sierra.KindNAK))
		}
		return
	case sierra.KindNAK:
		if v.lastReply != nil {
			v.out = append(v.out, v.lastReply...)
		}
		return
	case sierra.KindACK:
		if v.sending == nil || v.sending.next+1 >= len(v.sending.chunks) {
			v.sending = nil
			return
		}
	case sierra.KindCommand, sierra.KindData, sierra.KindDataEnd:
	default:
		return
	}

	if v.intercept(p) {
		return
	}

	switch p.Kind {
	case sierra.KindACK:
		v.sending.next++
		v.emit(v.chunkPacket())
	case sierra.KindCommand:
		v.command(p)
	case sierra.KindData, sierra.KindDataEnd:
		v.data(p)
	}
}

// intercept applies the next queued fault. It reports true when the packet
// must not be processed.
func (v *VirtualCamera) intercept(p *sierra.Packet) bool {
	if len(v.faults) == 0 {
		return false
	}
	f := v.faults[0]
	v.faults = v.faults[1:]

	switch f {
	case FaultSessionEnd, FaultSessionError, FaultWrongSpeed:
		kind := map[Fault]sierra.Kind{
			FaultSessionEnd:   sierra.KindSessionEnd,
			FaultSessionError: sierra.KindSessionError,
			FaultWrongSpeed:   sierra.KindWrongSpeed,
		}[f]
		v.reset()
		v.emit(sierra.Control(kind))
		return true
	case FaultNAK:
		v.out = append(v.out, v.encode(sierra.Control(sierra.KindNAK))...)
		return true
	case FaultCancel:
		v.sending = nil
		v.emit(sierra.Control(sierra.KindCancel))
		return true
	case FaultLostACK:
		if p.Kind == sierra.KindACK && v.lastReply != nil {
			v.out = append(v.out, v.lastReply...)
			return true
		}
	case FaultCorrupt, FaultDrop:
		v.mangle = f
	case FaultNone:
	}
	return false
}

// reset drops the session the way a camera does after SESSION_END.
func (v *VirtualCamera) reset() {
	v.session = !v.profile.Handshake
	v.expectFirst = true
	v.sending = nil
	v.pending = nil
	v.cameraRate = defaultRate
	v.folder = "/"
}

func (v *VirtualCamera) command(p *sierra.Packet) {
	if !v.session {
		v.emit(sierra.Control(sierra.KindSessionError))
		return
	}
	want := sierra.SubtypeCommand
	if v.profile.Handshake && v.expectFirst {
		want = sierra.SubtypeFirstCommand
	}
	if p.Subtype != want {
		v.subtypeErrs++
	}
	v.expectFirst = false

	if len(p.Payload) < 2 {
		v.emit(sierra.Control(sierra.KindInvalid))
		return
	}
	op, reg := p.Payload[0], sierra.Register(p.Payload[1])

	switch op {
	case 0x00:
		v.setInt(reg, p.Payload[2:])
	case 0x01:
		value, ok := v.intValue(reg)
		if !ok {
			v.emit(sierra.Control(sierra.KindInvalid))
			return
		}
		v.startSending(binary.LittleEndian.AppendUint32(nil, value), sierra.SerialMaxPayload)
	case 0x02:
		var sub byte
		if len(p.Payload) > 2 {
			sub = p.Payload[2]
		}
		v.action(sierra.Action(p.Payload[1]), sub)
	case 0x03:
		v.setString(reg, p.Payload[2:])
	case 0x04, 0x06:
		data, ok := v.stringValue(reg)
		if !ok {
			v.emit(sierra.Control(sierra.KindInvalid))
			return
		}
		size := sierra.SerialMaxPayload
		if op == 0x06 {
			size = sierra.USBMaxPayload
		}
		v.startSending(data, min(size, v.profile.MaxPayload))
	default:
		v.emit(sierra.Control(sierra.KindInvalid))
	}
}

func (v *VirtualCamera) setInt(reg sierra.Register, raw []byte) {
	if v.unsupported[reg] || (len(raw) != 0 && len(raw) != 4) {
		v.emit(sierra.Control(sierra.KindInvalid))
		return
	}
	var value uint32
	if len(raw) == 4 {
		value = binary.LittleEndian.Uint32(raw)
	}

	switch reg {
	case sierra.RegisterCurrentItem:
		if value < 1 || int(value) > len(v.items) {
			v.emit(sierra.Control(sierra.KindInvalid))
			return
		}
		v.current = int(value)
	case sierra.RegisterBitRate:
		rate, ok := rateCodes[value]
		if !ok {
			v.emit(sierra.Control(sierra.KindInvalid))
			return
		}
		v.emit(sierra.Control(sierra.KindACK))
		v.cameraRate = rate
		return
	case sierra.RegisterUploadArm:
		v.uploadArmed = value == uploadArmMagic
	default:
		v.ints[reg] = value
	}
	v.emit(sierra.Control(sierra.KindACK))
}

func (v *VirtualCamera) setString(reg sierra.Register, data []byte) {
	if v.unsupported[reg] {
		v.emit(sierra.Control(sierra.KindInvalid))
		return
	}
	if reg == sierra.RegisterFolderName {
		v.changeFolder(string(data))
		return
	}
	v.pending = &pendingSet{reg: reg, data: append([]byte(nil), data...)}
	v.strings[reg] = v.pending.data
	v.emit(sierra.Control(sierra.KindACK))
}

func (v *VirtualCamera) data(p *sierra.Packet) {
	if v.pending == nil {
		v.emit(sierra.Control(sierra.KindCancel))
		return
	}
	v.pending.data = append(v.pending.data, p.Payload...)
	v.strings[v.pending.reg] = v.pending.data
	if p.Kind == sierra.KindDataEnd {
		v.pending = nil
	}
	v.emit(sierra.Control(sierra.KindACK))
}

func (v *VirtualCamera) changeFolder(name string) {
	if len(v.folders) == 0 {
		v.emit(sierra.Control(sierra.KindInvalid))
		return
	}
	next := "/"
	if name != "\\" {
		next = path.Join(v.folder, name)
		if !v.folders[next] {
			v.emit(sierra.Control(sierra.KindInvalid))
			return
		}
	}
	v.folder = next
	v.emit(sierra.Control(sierra.KindACK))
}

func (v *VirtualCamera) action(a sierra.Action, sub byte) {
	v.actions = append(v.actions, a)

	switch a {
	case sierra.ActionCapture:
		n := len(v.items) + 1
		v.items = append(v.items, &VirtualItem{
			Filename:  fmt.Sprintf("P%07d.JPG", n),
			Image:     Pattern(3000+n, byte(n)),
			Thumbnail: Pattern(400, byte(n)),
		})
		v.current = n
	case sierra.ActionPreview:
		v.preview = Pattern(1500, 0x50)
		v.current = 0
	case sierra.ActionDelete:
		item := v.item()
		if item == nil || item.Locked {
			v.emit(sierra.Control(sierra.KindCancel))
			return
		}
		v.items = append(v.items[:v.current-1], v.items[v.current:]...)
		v.current = min(v.current, len(v.items))
	case sierra.ActionDeleteAll:
		kept := v.items[:0]
		for _, item := range v.items {
			if item.Locked {
				kept = append(kept, item)
			}
		}
		v.items = kept
		v.current = min(v.current, len(v.items))
	case sierra.ActionProtectState:
		item := v.item()
		if item == nil {
			v.emit(sierra.Control(sierra.KindInvalid))
			return
		}
		item.Locked = sub != 0
	case sierra.ActionLCDMode:
		v.ints[0xF0] = uint32(sub)
	case sierra.ActionUpload:
		data := v.strings[sierra.RegisterUploadData]
		if !v.uploadArmed || len(data) == 0 {
			v.emit(sierra.Control(sierra.KindCancel))
			return
		}
		v.uploadArmed = false
		v.items = append(v.items, &VirtualItem{
			Filename: fmt.Sprintf("U%07d.JPG", len(v.items)+1),
			Image:    append([]byte(nil), data...),
		})
	case sierra.ActionEnd:
		v.emit(sierra.Control(sierra.KindACK))
		v.reset()
		return
	default:
		v.emit(sierra.Control(sierra.KindInvalid))
		return
	}
	v.emit(sierra.Control(sierra.KindACK))
}

func (v *VirtualCamera) item() *VirtualItem {
	if v.current < 1 || v.current > len(v.items) {
		return nil
	}
	return v.items[v.current-1]
}

func (v *VirtualCamera) intValue(reg sierra.Register) (uint32, bool) {
	if v.unsupported[reg] {
		return 0, false
	}
	item := v.item()
	switch reg {
	case sierra.RegisterCurrentItem:
		return uint32(v.current), true
	case sierra.RegisterItemCount:
		return uint32(len(v.items)), true
	case sierra.RegisterFolderSelect:
		return uint32(len(v.folders)), len(v.folders) > 0
	case sierra.RegisterBitRate:
		for code, rate := range rateCodes {
			if rate == v.cameraRate {
				return code, true
			}
		}
		return 0, false
	case sierra.RegisterItemSize, sierra.RegisterThumbnailSize, sierra.RegisterAudioSize, sierra.RegisterLock:
		if item == nil {
			return 0, false
		}
		return map[sierra.Register]uint32{
			sierra.RegisterItemSize:      uint32(len(item.Image)),
			sierra.RegisterThumbnailSize: uint32(len(item.Thumbnail)),
			sierra.RegisterAudioSize:     uint32(len(item.Audio)),
			sierra.RegisterLock:          boolWord(item.Locked),
		}[reg], true
	}
	value, ok := v.ints[reg]
	return value, ok
}

func (v *VirtualCamera) stringValue(reg sierra.Register) ([]byte, bool) {
	if v.unsupported[reg] {
		return nil, false
	}
	item := v.item()
	switch reg {
	case sierra.RegisterImage:
		if v.current == 0 && v.preview != nil {
			return v.preview, true
		}
		if item == nil {
			return nil, false
		}
		return item.Image, true
	case sierra.RegisterThumbnail:
		if item == nil {
			return nil, false
		}
		return item.Thumbnail, true
	case sierra.RegisterAudio:
		if item == nil || len(item.Audio) == 0 {
			return nil, false
		}
		return item.Audio, true
	case sierra.RegisterFilename:
		if item == nil {
			return nil, false
		}
		return append([]byte(item.Filename), 0), true
	case sierra.RegisterItemInfo:
		if item == nil {
			return nil, false
		}
		block := make([]byte, 0, 32)
		for _, w := range []uint32{
			uint32(len(item.Image)), uint32(len(item.Thumbnail)), uint32(len(item.Audio)),
			item.Resolution, boolWord(item.Locked), item.Date, item.Animation,
		} {
			block = binary.LittleEndian.AppendUint32(block, w)
		}
		return append(block, make([]byte, 4)...), true
	}
	data, ok := v.strings[reg]
	return data, ok
}

// startSending begins a data phase: an ACK for the command (unless the
// camera answers with data directly) followed by the first chunk.
func (v *VirtualCamera) startSending(data []byte, chunkSize int) {
	var chunks [][]byte
	for len(data) > chunkSize {
		chunks = append(chunks, data[:chunkSize])
		data = data[chunkSize:]
	}
	chunks = append(chunks, data)
	v.sending = &outgoing{chunks: chunks}

	if v.dataNoAck {
		v.emit(v.chunkPacket())
		return
	}
	v.emit(sierra.Control(sierra.KindACK), v.chunkPacket())
}

func (v *VirtualCamera) chunkPacket() *sierra.Packet {
	i := v.sending.next
	last := i == len(v.sending.chunks)-1
	return sierra.NewData(byte(i), v.sending.chunks[i], last)
}

func (v *VirtualCamera) encode(p *sierra.Packet) []byte {
	wire, err := sierra.Encode(v.profile, p)
	if err != nil {
		panic(fmt.Sprintf("virtual camera cannot encode %v: %v", p, err))
	}
	return wire
}

// emit queues answers for the host. A pending corrupt or drop fault hits
// the last packet; NAK still resends the intact copy.
func (v *VirtualCamera) emit(packets ...*sierra.Packet) {
	for i, p := range packets {
		wire := v.encode(p)
		if i < len(packets)-1 {
			v.out = append(v.out, wire...)
			continue
		}
		v.lastReply = wire
		switch v.mangle {
		case FaultDrop:
		case FaultCorrupt:
			v.out = append(v.out, v.corrupt(p, wire)...)
		default:
			v.out = append(v.out, wire...)
		}
	}
}

// corrupt damages the checksum of a packet, never producing one of the
// values the host accepts unconditionally.
func (v *VirtualCamera) corrupt(p *sierra.Packet, wire []byte) []byte {
	bad := append([]byte(nil), wire...)
	if !p.Kind.IsMultiByte() {
		bad[len(bad)-1] = 0x42
		return bad
	}
	if v.profile.Framing == sierra.FramingEscaped {
		bad[len(bad)-1] ^= 0x01
		return bad
	}
	sum := binary.LittleEndian.Uint16(bad[len(bad)-2:])
	field := sum ^ 0x5A5A
	if frame.IsLenientChecksum(field) {
		field = sum ^ 0x0101
	}
	binary.LittleEndian.PutUint16(bad[len(bad)-2:], field)
	return bad
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Pattern returns n deterministic bytes starting at seed, with ESC bytes
// sprinkled in so escaped framing is exercised.
func Pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i*7)
		if i%97 == 0 {
			out[i] = frame.ESC
		}
	}
	return out
}

// Test helpers

// AddItem stores a picture and returns its 1-based index.
func (v *VirtualCamera) AddItem(item VirtualItem) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = append(v.items, &item)
	return len(v.items)
}

// Items returns copies of the stored pictures.
func (v *VirtualCamera) Items() []VirtualItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	items := make([]VirtualItem, len(v.items))
	for i, item := range v.items {
		items[i] = *item
	}
	return items
}

// SetRegister stores a scalar register value.
func (v *VirtualCamera) SetRegister(reg sierra.Register, value uint32) {
	v.mu.Lock()
	v.ints[reg] = value
	v.mu.Unlock()
}

// Register returns a scalar register value as the camera would report it.
func (v *VirtualCamera) Register(reg sierra.Register) (uint32, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.intValue(reg)
}

// SetBulk stores the contents of a bulk register.
func (v *VirtualCamera) SetBulk(reg sierra.Register, data []byte) {
	v.mu.Lock()
	v.strings[reg] = append([]byte(nil), data...)
	v.mu.Unlock()
}

// Bulk returns the contents of a bulk register.
func (v *VirtualCamera) Bulk(reg sierra.Register) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.strings[reg]...)
}

// SetUnsupported makes the camera answer INVALID for the registers.
func (v *VirtualCamera) SetUnsupported(regs ...sierra.Register) {
	v.mu.Lock()
	for _, reg := range regs {
		v.unsupported[reg] = true
	}
	v.mu.Unlock()
}

// EnableFolders gives the camera folder addressing with the given folders.
func (v *VirtualCamera) EnableFolders(folders ...string) {
	v.mu.Lock()
	for _, f := range folders {
		v.folders[path.Clean("/"+f)] = true
	}
	v.mu.Unlock()
}

// Folder returns the camera's current folder.
func (v *VirtualCamera) Folder() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.folder
}

// InjectFault queues a fault for the next count answers.
func (v *VirtualCamera) InjectFault(f Fault, count int) {
	v.mu.Lock()
	for range count {
		v.faults = append(v.faults, f)
	}
	v.mu.Unlock()
}

// SetDataWithoutAck makes the camera answer bulk and integer reads with
// the first data packet instead of an ACK.
func (v *VirtualCamera) SetDataWithoutAck(enabled bool) {
	v.mu.Lock()
	v.dataNoAck = enabled
	v.mu.Unlock()
}

// Received returns every packet the camera decoded.
func (v *VirtualCamera) Received() []*sierra.Packet {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*sierra.Packet(nil), v.received...)
}

// ReceivedKinds returns the kind of every packet the camera decoded.
func (v *VirtualCamera) ReceivedKinds() []sierra.Kind {
	v.mu.Lock()
	defer v.mu.Unlock()
	kinds := make([]sierra.Kind, len(v.received))
	for i, p := range v.received {
		kinds[i] = p.Kind
	}
	return kinds
}

// Commands returns the COMMAND packets the camera decoded.
func (v *VirtualCamera) Commands() []*sierra.Packet {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*sierra.Packet
	for _, p := range v.received {
		if p.Kind == sierra.KindCommand {
			out = append(out, p)
		}
	}
	return out
}

// ClearReceived forgets the recorded packets.
func (v *VirtualCamera) ClearReceived() {
	v.mu.Lock()
	v.received = nil
	v.mu.Unlock()
}

// Actions returns the actions the camera was asked to run.
func (v *VirtualCamera) Actions() []sierra.Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]sierra.Action(nil), v.actions...)
}

// Handshakes returns how many NUL probes the camera answered.
func (v *VirtualCamera) Handshakes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.handshakes
}

// SubtypeErrors counts COMMAND packets carrying the wrong sub-type.
func (v *VirtualCamera) SubtypeErrors() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subtypeErrs
}

// CameraRate returns the camera side of the line speed.
func (v *VirtualCamera) CameraRate() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cameraRate
}

// HostRate returns the line speed the host last selected.
func (v *VirtualCamera) HostRate() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hostRate
}

// InSession reports whether the camera considers a session open.
func (v *VirtualCamera) InSession() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Timeout returns the last read timeout the host set.
func (v *VirtualCamera) Timeout() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timeout
}
