//go:build windows

package mediakey

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard  = 1
	keyEventFKeyUp = 0x0002
)

var virtualKeys = map[Key]uint16{
	PlayPause: 0xB3, // VK_MEDIA_PLAY_PAUSE
	Next:      0xB0, // VK_MEDIA_NEXT_TRACK
	Previous:  0xB1, // VK_MEDIA_PREV_TRACK
}

type keyboardInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

type input struct {
	kind uint32
	_    uint32
	ki   keyboardInput
	_    [8]byte
}

// SendInput injects virtual media keys with user32!SendInput.
type SendInput struct{}

func newSendInput() Sender {
	return SendInput{}
}

// Send implements Sender.
func (SendInput) Send(ctx context.Context, key Key) error {
	vk, ok := virtualKeys[key]
	if !ok {
		return fmt.Errorf("send %s: %w", key, ErrUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	inputs := []input{
		{kind: inputKeyboard, ki: keyboardInput{vk: vk}},
		{kind: inputKeyboard, ki: keyboardInput{vk: vk, flags: keyEventFKeyUp}},
	}
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if n != uintptr(len(inputs)) {
		return fmt.Errorf("SendInput %s: %w", key, err)
	}
	return nil
}
