package sandbox

import "os"

func currentPID() int {
	return os.Getpid()
}
