// Oszifox Reader - Utility to display contents of Oszifox capture files
// This program prints the header, the recorded frames and their decoded
// settings, and renders a single frame's reconstructed trace.
package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"oszifox-viewer/internal/acquire"
	"oszifox-viewer/internal/capture"
	"oszifox-viewer/internal/decoder"
	"oszifox-viewer/internal/export"
	"oszifox-viewer/internal/filter"
	"oszifox-viewer/internal/frame"
	"oszifox-viewer/internal/version"
	"oszifox-viewer/internal/waveform"
)

var (
	frameIndex   int
	outputFormat string
	showGraph    bool
	graphWidth   int
	graphHeight  int
	kernelName   string
	oversample   int
	deltaX       int
	deltaY       int
	showVersion  bool
)

var rootCmd = &cobra.Command{
	Use:   "oszifox-reader [file.ozf]",
	Short: "Display contents of Oszifox capture files",
	Long: `Oszifox Reader displays the header and frames of a capture file recorded
with "oszifox --record".

Output formats:
  table   File summary and one line per frame (default)
  json    The selected frame as a reconstructed trace
  csv     The selected frame's reconstructed points

Frames are numbered from 0; a negative --frame counts from the end.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("Oszifox Reader"))
			return
		}

		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: filename required\n")
			cmd.Usage()
			os.Exit(1)
		}

		if err := displayFile(args[0], cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().IntVar(&frameIndex, "frame", -1, "frame to show in detail (negative counts from the end)")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "output format (table, json, csv)")
	rootCmd.Flags().BoolVarP(&showGraph, "graph", "g", false, "draw an ASCII graph of the selected frame")
	rootCmd.Flags().IntVar(&graphWidth, "graph-width", 80, "width of the ASCII graph in characters")
	rootCmd.Flags().IntVar(&graphHeight, "graph-height", 20, "height of the ASCII graph in lines")
	rootCmd.Flags().StringVar(&kernelName, "kernel", filter.Default.Name, "interpolation kernel: "+strings.Join(filter.Names(), " or "))
	rootCmd.Flags().IntVar(&oversample, "oversample", waveform.DefaultOversample, "output points per sample interval")
	rootCmd.Flags().IntVar(&deltaX, "dx", 0, "horizontal trace offset in display steps")
	rootCmd.Flags().IntVar(&deltaY, "dy", 0, "vertical trace offset in display steps")
}

// selectFrame resolves a possibly negative frame index.
func selectFrame(index, count int) (int, error) {
	if count == 0 {
		return 0, fmt.Errorf("capture contains no frames")
	}
	if index < 0 {
		index += count
	}
	if index < 0 || index >= count {
		return 0, fmt.Errorf("frame %d out of range (file has %d frames)", index, count)
	}
	return index, nil
}

func displayFile(filename string, cmd *cobra.Command) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	header, records, err := capture.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	k, err := filter.ByName(kernelName)
	if err != nil {
		return err
	}
	recon, err := waveform.New(k, oversample)
	if err != nil {
		return err
	}

	switch outputFormat {
	case "table":
		if err := displayTable(filename, header, records); err != nil {
			return err
		}
		if !cmd.Flags().Changed("frame") && !showGraph {
			return nil
		}
	case "json", "csv":
	default:
		return fmt.Errorf("unsupported format %q (must be 'table', 'json' or 'csv')", outputFormat)
	}

	idx, err := selectFrame(frameIndex, len(records))
	if err != nil {
		return err
	}
	rec := records[idx]
	snap := acquire.Snapshot{Seq: uint64(idx + 1), Received: rec.Time, Frame: rec.Frame}
	snap.Config = decoder.Decode(rec.Frame)
	pts := recon.ReconstructFrame(rec.Frame, waveform.Offset{DeltaX: deltaX, DeltaY: deltaY})

	switch outputFormat {
	case "json":
		tr := export.NewTrace(snap, pts, waveform.TimeAxis(snap.Config.Timebase)).WithReconstructor(recon)
		tr.View.Offset = waveform.Offset{DeltaX: deltaX, DeltaY: deltaY}
		return export.WriteJSON(os.Stdout, tr)
	case "csv":
		return export.WriteCSV(os.Stdout, pts)
	}

	displayFrame(idx, snap)
	if showGraph {
		fmt.Printf("📈 Reconstructed Trace (%s, oversample %d):\n", k.Name, oversample)
		for _, line := range renderGraph(pts, waveform.TimeAxis(snap.Config.Timebase), graphWidth, graphHeight) {
			fmt.Println(line)
		}
		fmt.Println()
	}
	return nil
}

func displayTable(filename string, header *capture.Header, records []capture.Record) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return err
	}

	fmt.Printf("OSZIFOX CAPTURE READER %s\n\n", version.GetFullVersion())

	fmt.Printf("📁 File Information:\n")
	fmt.Printf("Name: %s\n", filepath.Base(filename))
	fmt.Printf("Size: %.2f KB (%d bytes)\n", float64(fileInfo.Size())/1024, fileInfo.Size())
	fmt.Printf("Format Version: %d\n", header.FileFormatVersion)
	fmt.Printf("Created: %s\n", header.Created.Format("2006-01-02 15:04:05.000"))
	fmt.Printf("Device: %s\n", header.Device)
	fmt.Printf("Frames: %d\n", len(records))
	if len(records) > 1 {
		span := records[len(records)-1].Time.Sub(records[0].Time)
		fmt.Printf("Span: %v (%.1f frames/s)\n", span, float64(len(records)-1)/span.Seconds())
	}
	fmt.Println()

	fmt.Printf("%6s  %-23s  %-10s  %-6s  %-8s  %s\n", "Frame", "Time", "Trigger", "Range", "Coupling", "Timebase")
	for i, rec := range records {
		cfg := decoder.Decode(rec.Frame)
		fmt.Printf("%6d  %-23s  %-10s  %-6s  %-8s  %gs\n",
			i, rec.Time.Format("2006-01-02 15:04:05.000"),
			cfg.Trigger, cfg.Range.String()+"V", cfg.Coupling, cfg.Timebase)
	}
	fmt.Println()
	return nil
}

func displayFrame(idx int, snap acquire.Snapshot) {
	samples := snap.Frame.Samples()
	hdr := snap.Frame.Header()

	minS, maxS, sum := 255, 0, 0
	for _, s := range samples {
		v := int(s)
		minS = min(minS, v)
		maxS = max(maxS, v)
		sum += v
	}
	mean := float64(sum) / frame.NumSamples

	fmt.Printf("🔍 Frame %d:\n", idx)
	fmt.Printf("Received: %s\n", snap.Received.Format("2006-01-02 15:04:05.000"))
	fmt.Printf("Header: % 02x\n", hdr[:])
	fmt.Printf("%v\n", snap.Config)
	fmt.Printf("Samples: min %d, max %d, mean %.2f (amplitude %.3f to %.3f)\n",
		minS, maxS, mean, float64(minS)/frame.SampleScale, float64(maxS)/frame.SampleScale)
	fmt.Println()
}

// renderGraph plots the trace on a fixed display band, so offsets and
// amplitude are shown the way the viewer would show them.
func renderGraph(points []waveform.Point, axis waveform.Axis, width, height int) []string {
	if width < 2 || height < 2 || len(points) == 0 {
		return []string{"(empty graph)"}
	}

	graph := make([][]rune, height)
	for i := range graph {
		graph[i] = []rune(strings.Repeat(" ", width))
	}

	const yLow, yHigh = 0.0, 1.0
	for _, p := range points {
		if p.X < 0 || p.X > 1 || p.Y < yLow || p.Y > yHigh {
			continue
		}
		x := int(math.Round(p.X * float64(width-1)))
		y := int(math.Round((yHigh - p.Y) / (yHigh - yLow) * float64(height-1)))
		if graph[y][x] == ' ' {
			graph[y][x] = '*'
		} else {
			graph[y][x] = '#'
		}
	}

	lines := make([]string, 0, height+2)
	for i, row := range graph {
		level := yHigh - float64(i)/float64(height-1)*(yHigh-yLow)
		lines = append(lines, fmt.Sprintf("%5.2f |%s|", level, string(row)))
	}
	lines = append(lines, "      +"+strings.Repeat("-", width)+"+")

	labels := []rune(strings.Repeat(" ", width+1))
	for _, t := range axis.Major {
		col := int(math.Round(t.X * float64(width-1)))
		for j, r := range t.Label {
			if col+j < len(labels) {
				labels[col+j] = r
			}
		}
	}
	lines = append(lines, "       "+strings.TrimRight(string(labels), " "))
	return lines
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
