package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"clubhub-go/internal/dispatch"

	"github.com/spf13/cobra"
)

func newRequestCmd(a *app) *cobra.Command {
	var data string
	var headers []string
	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request to the API and print the response body",
		Example: `  clubctl request GET /clubs
  clubctl request POST /clubs --data '{"name":"Riverside FC"}'
  clubctl request PUT /clubs/1 --data @club.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.client(cmd.Context()); err != nil {
				return err
			}
			body, err := readData(data, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req := &dispatch.Request{
				Method: strings.ToUpper(args[0]),
				Path:   args[1],
				Header: make(http.Header),
				Body:   body,
			}
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, expected Name: value", h)
				}
				req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			resp, err := a.disp.Dispatch(cmd.Context(), req)
			if resp != nil {
				writeBody(cmd.OutOrStdout(), resp.Body)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body; @file reads a file, @- reads stdin")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header, e.g. -H 'X-Club: 1'")
	return cmd
}

func readData(data string, stdin io.Reader) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "@-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(data[1:])
	default:
		return []byte(data), nil
	}
}

// writeBody pretty-prints JSON and passes anything else through.
func writeBody(w io.Writer, body []byte) {
	if len(body) == 0 {
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, body, "", "  ") == nil {
		buf.WriteByte('\n')
		_, _ = w.Write(buf.Bytes())
		return
	}
	_, _ = w.Write(body)
	if body[len(body)-1] != '\n' {
		fmt.Fprintln(w)
	}
}
