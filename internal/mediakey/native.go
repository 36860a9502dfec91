package mediakey

import "runtime"

// Native returns the media-key sender for the host OS.
func Native() Sender {
	return nativeFor(runtime.GOOS)
}

func nativeFor(goos string) Sender {
	switch goos {
	case "darwin":
		return NewAppleScript()
	case "linux", "freebsd", "openbsd", "netbsd":
		return NewPlayerctl("")
	case "windows":
		return newSendInput()
	default:
		return Unsupported{}
	}
}
