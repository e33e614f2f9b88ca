package evn

import "golang.org/x/sys/unix"

const sendFlags = unix.MSG_NOSIGNAL | unix.MSG_DONTWAIT
