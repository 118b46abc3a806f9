package capability

import (
	"fmt"
	"io"

	"github.com/breezestudio/goahead/internal/conn"
)

// Print writes each line to W as "tag: line".
type Print struct {
	W io.Writer
}

func (p *Print) HandleLine(c *conn.Conn, line string) error {
	_, err := fmt.Fprintf(p.W, "%s: %s\n", c.Tag(), line)
	return err
}
