package m3u

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"iptv-viewer/internal/channel"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/metrics"
)

// ErrNotText reports input that cannot be decoded as playlist text at
// all. It is the only fatal parse error; everything else degrades to
// per-entry diagnostics.
var ErrNotText = errors.New("m3u: input is not decodable as text")

// Result holds the outcome of parsing one playlist source: the ordered
// record list and the diagnostics for every skipped entry.
type Result struct {
	Records     []channel.Record
	Diagnostics []channel.Diagnostic
}

const (
	headerDirective = "#EXTM3U"
	infDirective    = "#EXTINF:"
	groupDirective  = "#EXTGRP:"

	// defaultDuration substitutes a missing duration field; -1 is the
	// conventional "live stream" duration in EXTINF.
	defaultDuration = "-1"
)

// attrRe matches one key="value" (or key='value') attribute token.
var attrRe = regexp.MustCompile(`^([A-Za-z0-9_-]+)=(?:"([^"]*)"|'([^']*)')`)

// durationRe matches the optional numeric duration right after #EXTINF:.
var durationRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)`)

// pendingEntry accumulates directive state until the URI line arrives.
type pendingEntry struct {
	line  int
	name  string
	group string
	attrs map[string]string
}

// Parse converts raw playlist bytes into ordered channel records plus
// diagnostics. Record order equals source order; ids are assigned
// sequentially starting at 1. Empty input is valid and yields an empty
// result.
func Parse(raw []byte) (*Result, error) {
	start := time.Now()
	metrics.ParseRunsTotal.Inc()

	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var (
		pending      *pendingEntry
		runningGroup string
		sawHeader    bool
		skipNextURI  bool
		nextID       int64 = 1
	)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, headerDirective):
			sawHeader = true

		case strings.HasPrefix(line, infDirective):
			if pending != nil {
				res.diagnose(pending.line, channel.ReasonMissingURI,
					"directive has no following stream URI")
			}
			pending = nil
			skipNextURI = false

			if strings.ContainsRune(line, utf8.RuneError) {
				res.diagnose(lineNo, channel.ReasonEncodingError,
					"directive contains undecodable bytes")
				skipNextURI = true
				continue
			}

			entry, ok := parseInfDirective(line, lineNo)
			if !ok {
				res.diagnose(lineNo, channel.ReasonMalformedDirective,
					"unparseable #EXTINF directive")
				skipNextURI = true
				continue
			}
			pending = entry

		case strings.HasPrefix(line, groupDirective):
			group := strings.TrimSpace(line[len(groupDirective):])
			if pending != nil {
				if pending.group == "" {
					pending.group = group
				}
			} else {
				runningGroup = group
			}

		case strings.HasPrefix(line, "#"):
			// Unknown directive: preserve it verbatim on the pending
			// entry instead of dropping it. Lines without a colon are
			// plain comments.
			if pending == nil {
				continue
			}
			if name, value, found := strings.Cut(line[1:], ":"); found && name != "" {
				pending.attrs[strings.ToLower(name)] = value
			}

		default:
			// Non-directive line: the stream URI.
			if skipNextURI {
				skipNextURI = false
				continue
			}
			if pending == nil {
				res.diagnose(lineNo, channel.ReasonMalformedDirective,
					"stream URI without preceding #EXTINF directive")
				continue
			}
			if strings.ContainsRune(line, utf8.RuneError) {
				res.diagnose(pending.line, channel.ReasonEncodingError,
					"stream URI contains undecodable bytes")
				pending = nil
				continue
			}

			rec := pending.finish(nextID, line, runningGroup)
			res.Records = append(res.Records, rec)
			nextID++
			pending = nil
		}
	}

	if pending != nil {
		res.diagnose(pending.line, channel.ReasonMissingURI,
			"directive has no following stream URI")
	}

	if !sawHeader && len(res.Records) > 0 {
		logging.Warn("Playlist has no #EXTM3U header; parsed %d entries anyway", len(res.Records))
	}

	metrics.ParseDuration.Observe(time.Since(start).Seconds())
	metrics.ParseRecordsTotal.Add(float64(len(res.Records)))

	return res, nil
}

func (r *Result) diagnose(line int, reason channel.Reason, detail string) {
	r.Diagnostics = append(r.Diagnostics, channel.Diagnostic{
		SourceLine: line,
		Reason:     reason,
		Detail:     detail,
	})
	metrics.ParseDiagnosticsTotal.WithLabelValues(string(reason)).Inc()
}

// parseInfDirective parses one #EXTINF line into a pending entry.
// Shape: #EXTINF:<duration> key="value" ...,<display name>
// Duration and attributes are optional; the comma before the name is not.
func parseInfDirective(line string, lineNo int) (*pendingEntry, bool) {
	rest := line[len(infDirective):]
	attrs := make(map[string]string)

	if m := durationRe.FindStringSubmatch(rest); m != nil {
		attrs["duration"] = m[1]
		rest = rest[len(m[0]):]
	} else {
		attrs["duration"] = defaultDuration
	}

	// Consume attribute tokens one at a time so quoted values may contain
	// commas without truncating the attribute list.
	for {
		rest = strings.TrimLeft(rest, " \t")
		m := attrRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		value := m[2]
		if value == "" {
			value = m[3]
		}
		attrs[strings.ToLower(m[1])] = value
		rest = rest[len(m[0]):]
	}

	rest = strings.TrimLeft(rest, " \t")
	name, found := strings.CutPrefix(rest, ",")
	if !found {
		return nil, false
	}

	return &pendingEntry{
		line:  lineNo,
		name:  strings.TrimSpace(name),
		group: attrs["group-title"],
		attrs: attrs,
	}, true
}

// finish materializes the pending entry into a Record once its URI line
// has been seen.
func (p *pendingEntry) finish(id int64, uri, runningGroup string) channel.Record {
	name := p.name
	if name == "" {
		name = p.attrs["tvg-name"]
	}
	if name == "" {
		name = nameFromURI(uri, id)
	}
	if p.attrs["tvg-name"] == "" {
		p.attrs["tvg-name"] = name
	}

	group := p.group
	if group == "" {
		group = runningGroup
	}
	if group == "" {
		group = channel.DefaultGroup
	}

	return channel.Record{
		ID:          id,
		DisplayName: name,
		StreamURI:   uri,
		GroupName:   group,
		Attributes:  p.attrs,
		SourceLine:  p.line,
	}
}

// nameFromURI derives a display name from the URI's last path segment,
// falling back to a numbered placeholder.
func nameFromURI(uri string, id int64) string {
	segment := ""
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		segment = path.Base(u.Path)
	} else if idx := strings.LastIndexByte(uri, '/'); idx >= 0 {
		segment = uri[idx+1:]
	}
	if segment == "" || segment == "." || segment == "/" {
		return fmt.Sprintf("Channel %d", id)
	}
	return segment
}

// decode converts raw bytes to a UTF-8 string, honoring UTF-8 and UTF-16
// byte order marks. Invalid sequences become U+FFFD and are reported
// per-entry by the caller; input that is clearly binary fails outright.
func decode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotText, err)
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return "", ErrNotText
	}
	return string(out), nil
}
