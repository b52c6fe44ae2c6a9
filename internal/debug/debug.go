package debug

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/mcastelli/minegate/internal/core"
	"github.com/mcastelli/minegate/internal/protocol"
)

var frameDumper = spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
}

// StartUtilities spins off the services associated with debug mode.
func StartUtilities(config *core.Config, logger *logrus.Logger) {
	if config.Debugging.PprofEnabled {
		startPprofServer(config, logger)
	}
}

// startPprofServer starts the default pprof HTTP server that can be accessed
// via localhost to get runtime information about the server.
// See https://golang.org/pkg/net/http/pprof/
func startPprofServer(config *core.Config, logger *logrus.Logger) {
	listenerAddr := fmt.Sprintf("localhost:%d", config.Debugging.PprofPort)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

// DumpFrame logs a received frame's metadata and payload for protocol
// debugging. Payload bytes are dumped verbatim, so this is only intended for
// development servers.
func DumpFrame(logger *logrus.Logger, remoteAddr string, phase protocol.Phase, frame protocol.RawFrame) {
	logger.Debugf("frame from %s [phase=%s id=0x%02X len=%d]\n%s",
		remoteAddr, phase, frame.PacketID, len(frame.Payload),
		frameDumper.Sdump(frame.Payload))
}
