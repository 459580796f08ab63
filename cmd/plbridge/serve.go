package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgtype"
	wire "github.com/jeroenrinzema/psql-wire"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/host/sqlhost"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the SQLite host over the PostgreSQL wire protocol",
	Long: `Accepts PostgreSQL clients and runs their statements on the SQLite host.
Bridged functions are called with plcall, for example:

  SELECT plcall('sumtwo', 2, 3);`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		addr, _ := cmd.Flags().GetString("addr")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, s, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:5433", "TCP address to listen on")
	rootCmd.AddCommand(serveCmd)
}

// wireServer runs client statements one at a time; the bridge has a single
// backend thread.
type wireServer struct {
	s  *session
	mu sync.Mutex
}

func serve(ctx context.Context, s *session, addr string) error {
	ws := &wireServer{s: s}
	server, err := wire.NewServer(ws.handle,
		wire.Version("plbridge "+Version),
		wire.GlobalParameters(wire.Parameters{
			wire.ParamServerEncoding: "UTF8",
			"DateStyle":              "ISO, MDY",
			"TimeZone":               "UTC",
		}),
	)
	if err != nil {
		return fmt.Errorf("create wire server: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.log.Info("serving", zap.String("address", listener.Addr().String()))

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.Serve(listener); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (ws *wireServer) handle(ctx context.Context, query string) (wire.PreparedStatements, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return wire.Prepared(), nil
	}

	if !sqlhost.ReturnsRows(query) {
		stmt := wire.NewStatement(func(ctx context.Context, writer wire.DataWriter, params []wire.Parameter) error {
			res, err := ws.run(ctx, query)
			if err != nil {
				return err
			}
			return writer.Complete(commandTag(query, res.RowsAffected))
		})
		return wire.Prepared(stmt), nil
	}

	// Columns must be known when the statement is described, so row
	// statements run here and replay their rows on execute.
	res, err := ws.run(ctx, query)
	if err != nil {
		return nil, err
	}
	columns := make(wire.Columns, len(res.Desc.Attrs))
	for i, a := range res.Desc.Attrs {
		columns[i] = wire.Column{Name: a.Name, Oid: pgtype.TextOID, Width: -1}
	}
	stmt := wire.NewStatement(func(ctx context.Context, writer wire.DataWriter, params []wire.Parameter) error {
		for _, tup := range res.Rows {
			if err := writer.Row(ws.textRow(tup)); err != nil {
				return err
			}
		}
		return writer.Complete(fmt.Sprintf("SELECT %d", len(res.Rows)))
	}, wire.WithColumns(columns))
	return wire.Prepared(stmt), nil
}

func (ws *wireServer) run(ctx context.Context, query string) (*host.Result, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	res, err := ws.s.host.Query(ctx, query)
	if err != nil {
		state, msg := ws.s.rt.Describe(err)
		ws.s.log.Debug("statement failed", zap.String("state", state), zap.Error(err))
		return nil, fmt.Errorf("%s: %s", state, msg)
	}
	return res, nil
}

func (ws *wireServer) textRow(tup *host.Tuple) []any {
	row := make([]any, len(tup.Values))
	for i, v := range tup.Values {
		if tup.Nulls[i] {
			continue
		}
		row[i] = formatDatum(ws.s.codec, tup.Desc.Attrs[i].TypeOid, v)
	}
	return row
}

// commandTag is the completion tag of a statement without rows.
func commandTag(query string, affected int64) string {
	word := strings.ToUpper(strings.Fields(query)[0])
	switch word {
	case "INSERT":
		return fmt.Sprintf("INSERT 0 %d", affected)
	case "UPDATE", "DELETE":
		return fmt.Sprintf("%s %d", word, affected)
	}
	return word
}
