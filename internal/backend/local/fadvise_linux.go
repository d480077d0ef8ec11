package local

import (
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// adviseRandom tells the kernel that sector chains are read in random order,
// which disables readahead on the data file.
func adviseRandom(f *os.File) {
	err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
	if err != nil {
		log.Debugf("fadvise %v: %v", f.Name(), err)
	}
}
