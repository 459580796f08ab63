package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wippyai/plbridge/host"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog functions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		procs, err := s.catalog.Procs(cmd.Context())
		if err != nil {
			return err
		}
		if len(procs) == 0 {
			fmt.Println("No functions defined.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "OID\tSIGNATURE\tBODY\tVOLATILITY")
		for _, p := range procs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%c\n", p.Oid, signature(s.codec, p), p.Body, p.Volatility)
		}
		return w.Flush()
	},
}

var defineCmd = &cobra.Command{
	Use:   "define <oid> <name> <class.method[(params)]>",
	Short: "Define a function in the SQLite catalog",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())
		if s.pg != nil {
			return fmt.Errorf("define writes the SQLite catalog; the configured catalog is %s", s.cfg.Catalog.Driver)
		}

		fnOid, err := parseOid(args[0])
		if err != nil {
			return fmt.Errorf("invalid oid %q", args[0])
		}
		p := &host.ProcInfo{Oid: fnOid, Name: args[1], Body: args[2]}

		argList, _ := cmd.Flags().GetString("args")
		if argList != "" {
			for _, name := range strings.Split(argList, ",") {
				typ, err := typeOid(s.codec, name)
				if err != nil {
					return err
				}
				p.ArgTypes = append(p.ArgTypes, typ)
			}
		}
		ret, _ := cmd.Flags().GetString("returns")
		if p.ReturnType, err = typeOid(s.codec, ret); err != nil {
			return err
		}
		vol, _ := cmd.Flags().GetString("volatility")
		if len(vol) != 1 || !strings.Contains("isv", vol) {
			return fmt.Errorf("volatility must be one of i, s, v")
		}
		p.Volatility = host.Volatility(vol[0])
		p.Strict, _ = cmd.Flags().GetBool("strict")
		p.ReturnsSet, _ = cmd.Flags().GetBool("set")

		if err := s.host.DefineProc(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Printf("Defined %s\n", signature(s.codec, p))
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <function> [args...]",
	Short: "Call a function by oid or name",
	Long:  `Arguments are given in their SQL text form; NULL passes SQL NULL.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())

		out, err := s.call(cmd.Context(), args[0], args[1:])
		if err != nil {
			state, msg := s.rt.Describe(err)
			return fmt.Errorf("ERROR %s: %s", state, msg)
		}
		for _, line := range out {
			fmt.Println(line)
		}
		return nil
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Pick and call functions interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal() {
			return fmt.Errorf("shell needs a terminal")
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd.Context())
		return runShell(cmd.Context(), s)
	},
}

func init() {
	defineCmd.Flags().String("args", "", "comma separated argument types")
	defineCmd.Flags().String("returns", "void", "return type")
	defineCmd.Flags().String("volatility", "v", "volatility class: i, s or v")
	defineCmd.Flags().Bool("strict", false, "return NULL on any NULL argument")
	defineCmd.Flags().Bool("set", false, "set-returning function")

	rootCmd.AddCommand(listCmd, defineCmd, callCmd, shellCmd)
}
