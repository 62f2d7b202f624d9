// ABOUTME: Pure parsers turning raw ping/tracert console text into structured results.
// ABOUTME: Pattern sets cover the Russian and English Windows tool locales.

package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// pingPatterns is one locale's set of ping summary patterns. All four must
// match for the locale to be accepted.
type pingPatterns struct {
	loss *regexp.Regexp
	min  *regexp.Regexp
	avg  *regexp.Regexp
	max  *regexp.Regexp
}

// pingLocales is ordered by deployment likelihood: the agents run on Russian
// Windows installs, English is the fallback.
var pingLocales = []pingPatterns{
	{
		loss: regexp.MustCompile(`\((\d+)% потерь\)`),
		min:  regexp.MustCompile(`Минимальное = (\d+)\s?мсек`),
		max:  regexp.MustCompile(`Максимальное = (\d+)\s?мсек`),
		avg:  regexp.MustCompile(`Среднее = (\d+)\s?мсек`),
	},
	{
		loss: regexp.MustCompile(`\((\d+)% loss\)`),
		min:  regexp.MustCompile(`Minimum = (\d+)ms`),
		max:  regexp.MustCompile(`Maximum = (\d+)ms`),
		avg:  regexp.MustCompile(`Average = (\d+)ms`),
	},
}

// traceLine matches one tracert hop line: hop index, the RTT token field,
// and an optional trailing address. The address class is ASCII-only on
// purpose: localized timeout phrases ("Превышен интервал ...") must not be
// mistaken for hostnames.
var traceLine = regexp.MustCompile(`^\s*(\d+)\s+([\dms*<мс ]+)\s+([\w.\-]+)?`)

// ParsePingOutput extracts packet loss and min/avg/max round-trip times from
// a ping summary. All four fields are required: a summary missing any of
// them yields an *Error carrying the full raw text, never a partial result.
func ParsePingOutput(text string) (*PingStats, error) {
	for _, p := range pingLocales {
		loss := p.loss.FindStringSubmatch(text)
		min := p.min.FindStringSubmatch(text)
		avg := p.avg.FindStringSubmatch(text)
		max := p.max.FindStringSubmatch(text)
		if loss == nil || min == nil || avg == nil || max == nil {
			continue
		}

		// Captures are \d+ so Atoi cannot fail.
		stats := &PingStats{}
		stats.PacketLoss, _ = strconv.Atoi(loss[1])
		stats.MinRTT, _ = strconv.Atoi(min[1])
		stats.AvgRTT, _ = strconv.Atoi(avg[1])
		stats.MaxRTT, _ = strconv.Atoi(max[1])
		return stats, nil
	}

	return nil, &Error{
		Kind: ErrorParse,
		Msg:  "Could not parse ping output",
		Raw:  text,
	}
}

// ParseTracertOutput splits a tracert report into hops. headerLines leading
// lines are discarded as tool banner. Lines that do not look like hop lines
// are skipped silently; a report with no recognizable hops is an empty
// sequence, not an error. Hops whose RTT field holds only timeout
// placeholders get the wildcard for all three statistics.
func ParseTracertOutput(text string, headerLines int) ([]Hop, error) {
	if headerLines < 0 {
		return nil, &Error{Kind: ErrorParse, Msg: "Could not parse tracert output", Raw: text}
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if headerLines > len(lines) {
		headerLines = len(lines)
	}

	hops := []Hop{}
	for _, line := range lines[headerLines:] {
		m := traceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		index, _ := strconv.Atoi(m[1])
		address := m[3]
		if address == "" {
			address = Wildcard
		}

		var samples []int
		for _, tok := range strings.Fields(m[2]) {
			v, err := strconv.Atoi(tok)
			if err != nil || v < 0 {
				continue
			}
			samples = append(samples, v)
		}

		hop := Hop{Index: index, Address: address}
		if len(samples) > 0 {
			hop.MinRTT = Millis(float64(minInt(samples)))
			hop.AvgRTT = Millis(mean(samples))
			hop.MaxRTT = Millis(float64(maxInt(samples)))
		}
		hops = append(hops, hop)
	}

	return hops, nil
}

func minInt(vs []int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInt(vs []int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func mean(vs []int) float64 {
	sum := 0
	for _, v := range vs {
		sum += v
	}
	return float64(sum) / float64(len(vs))
}
