package capability

import (
	"context"
	"io"
	"net"

	"github.com/breezestudio/goahead/util"
)

// Relay copies stdin to a dialed connection and the connection to
// stdout, the interactive half of connect mode.
type Relay struct{}

// Handle shuttles bytes until either side closes or ctx is cancelled.
func (Relay) Handle(ctx context.Context, c net.Conn, stdin io.Reader, stdout io.Writer) error {
	return util.BidirectionalCopy(ctx, c, stdin, stdout)
}
