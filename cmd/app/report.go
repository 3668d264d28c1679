package main

import (
	"fmt"
	"io"
	"time"

	"github.com/local/pagepress/internal/pipeline"
)

// printReport renders the final snapshot of a completed job.
func printReport(w io.Writer, st pipeline.Status) {
	if st.Start != nil && st.End != nil {
		fmt.Fprintf(w, "Optimized in %s\n", st.End.Sub(*st.Start).Round(10*time.Millisecond))
	}
	if n, ok := metaNum(st.Metadata, "pages"); ok {
		line := fmt.Sprintf("%.0f", n)
		if c, ok := metaNum(st.Metadata, "cover_pages"); ok && c > 0 {
			line += fmt.Sprintf(" (+%.0f cover)", c)
		}
		fmt.Fprintf(w, "  Pages:      %s\n", line)
	}
	if n, ok := metaNum(st.Metadata, "palette_colors"); ok {
		fmt.Fprintf(w, "  Palette:    %.0f colors\n", n)
	}
	orig, haveOrig := metaNum(st.Metadata, "original_bytes")
	opt, haveOpt := metaNum(st.Metadata, "optimized_bytes")
	if haveOrig && haveOpt {
		fmt.Fprintf(w, "  Page bytes: %s -> %s", humanBytes(orig), humanBytes(opt))
		if pct, ok := metaNum(st.Metadata, "compression_percent"); ok {
			fmt.Fprintf(w, " (%.1f%% smaller)", pct)
		}
		fmt.Fprintln(w)
	}
	if n, ok := metaNum(st.Metadata, "output_bytes"); ok {
		fmt.Fprintf(w, "  Output:     %s  %s\n", humanBytes(n), metaStr(st.Metadata, "out_path"))
	}
	if url := metaStr(st.Metadata, "artifact_url"); url != "" {
		fmt.Fprintf(w, "  Uploaded:   %s\n", url)
	}
}

// metaNum reads a numeric metadata value. Numbers arrive as native ints
// from the in-memory store and as float64 after a Redis round trip.
func metaNum(meta map[string]any, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func metaStr(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

func humanBytes(n float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for n >= 1024 && i < len(units)-1 {
		n /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", n, units[i])
	}
	return fmt.Sprintf("%.1f %s", n, units[i])
}
