//go:build !windows

package mediakey

func newSendInput() Sender {
	return Unsupported{}
}
