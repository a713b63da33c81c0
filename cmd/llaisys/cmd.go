package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/llaisys/device"
	"github.com/born-ml/llaisys/internal/envconfig"
	"github.com/born-ml/llaisys/internal/logutil"
	"github.com/born-ml/llaisys/loader"
	"github.com/born-ml/llaisys/tensor"
)

const version = "v0.1.0-dev"

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "llaisys",
		Short:         "Tensor and operator core for LLM inference",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "llaisys version %s\n", version)
		},
	}

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List device runtimes",
		Args:  cobra.NoArgs,
		RunE:  devicesHandler,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the tensors in a SafeTensors file",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectHandler,
	}

	convertCmd := &cobra.Command{
		Use:   "convert SRC DST",
		Short: "Rewrite the floating point tensors of a SafeTensors file",
		Args:  cobra.ExactArgs(2),
		RunE:  convertHandler,
	}
	convertCmd.Flags().String("dtype", "BF16", "Target dtype (F32, F16 or BF16)")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment configuration",
		Args:  cobra.NoArgs,
		Run:   envHandler,
	}

	rootCmd.AddCommand(versionCmd, devicesCmd, inspectCmd, convertCmd, envCmd)
	return rootCmd
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func devicesHandler(cmd *cobra.Command, _ []string) error {
	var data [][]string
	for _, t := range device.Registered() {
		count, status := "-", "ok"
		rt, err := device.Lookup(t)
		if err != nil {
			status = err.Error()
		} else {
			count = strconv.Itoa(rt.DeviceCount())
		}
		data = append(data, []string{t.String(), count, status})
	}

	table := newTable(cmd.OutOrStdout(), []string{"DEVICE", "COUNT", "STATUS"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func inspectHandler(cmd *cobra.Command, args []string) error {
	f, err := loader.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var data [][]string
	for _, name := range f.Names() {
		info, err := f.Info(name)
		if err != nil {
			return err
		}
		data = append(data, []string{name, info.DType.String(), formatShape(info.Shape), strconv.FormatInt(info.Size, 10)})
	}

	w := cmd.OutOrStdout()
	if md := f.Metadata(); len(md) > 0 {
		keys := make([]string, 0, len(md))
		for k := range md {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, md[k])
		}
		fmt.Fprintln(w)
	}

	table := newTable(w, []string{"NAME", "DTYPE", "SHAPE", "BYTES"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func convertHandler(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("dtype")
	if err != nil {
		return err
	}
	target, err := parseDType(name)
	if err != nil {
		return err
	}

	f, err := loader.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := device.NewContext()
	tensors := make(map[string]*tensor.Tensor)
	defer func() {
		for _, t := range tensors {
			_ = t.Release()
		}
	}()

	for _, n := range f.Names() {
		info, err := f.Info(n)
		if err != nil {
			return err
		}
		opts := loader.Options{Device: "cpu"}
		if info.DType.IsFloat() {
			opts.DType = target
		}
		t, err := f.Load(ctx, n, opts)
		if err != nil {
			return err
		}
		tensors[n] = t
	}

	if err := loader.WriteFile(args[1], tensors, f.Metadata()); err != nil {
		return err
	}
	slog.Info("converted", "src", args[0], "dst", args[1], "dtype", target, "tensors", len(tensors))
	return nil
}

func envHandler(cmd *cobra.Command, _ []string) {
	vars := envconfig.AsMap()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable(cmd.OutOrStdout(), []string{"NAME", "VALUE", "DESCRIPTION"})
	for _, k := range keys {
		v := vars[k]
		table.Append([]string{v.Name, fmt.Sprint(v.Value), v.Description})
	}
	table.Render()
}

func parseDType(s string) (tensor.DataType, error) {
	switch strings.ToUpper(s) {
	case "F32", "FLOAT32":
		return tensor.Float32, nil
	case "F16", "FLOAT16":
		return tensor.Float16, nil
	case "BF16", "BFLOAT16":
		return tensor.BFloat16, nil
	}
	return 0, fmt.Errorf("unsupported dtype %q", s)
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
