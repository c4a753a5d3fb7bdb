package detect

import (
	"context"
	"regexp"
)

var dangerousPathTokens = []string{
	"/", "/etc", "/home", "/usr", "/bin", "/boot", "~", "$HOME", "*",
}

var shellPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brm\s+-[a-z]*r[a-z]*f[a-z]*\b`),
	regexp.MustCompile(`(?i)\brm\s+-[a-z]*f[a-z]*r[a-z]*\b`),
	regexp.MustCompile(`(?i)\bDROP\s+(DATABASE|TABLE)\b`),
	regexp.MustCompile(`(?i)\bTRUNCATE\s+TABLE\b`),
	deleteFromNoWhere,
	regexp.MustCompile(`(?i)\bmkfs\.\w+`),
	regexp.MustCompile(`(?i)\bdd\s+.*\bof=/dev/\S+`),
	regexp.MustCompile(`(?i)\bchmod\s+777\s+/etc/\S*`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\|\s*:&\s*\}\s*;\s*:`),
	regexp.MustCompile(`(?i)\bshred\b`),
}

var deleteFromNoWhere = regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+[^\s;]+(?:\s*;|\s*$)`)
var hasWhere = regexp.MustCompile(`(?i)\bWHERE\b`)

var cloudPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bec2\s+terminate-instances\b`),
	regexp.MustCompile(`(?i)\bs3\s+rb\s+--force\b`),
	regexp.MustCompile(`(?i)\bs3api\s+delete-bucket\b`),
	regexp.MustCompile(`(?i)\brds\s+delete-db-instance\b`),
	regexp.MustCompile(`(?i)\bcloudformation\s+delete-stack\b`),
	regexp.MustCompile(`(?i)\blambda\s+delete-function\b`),
	regexp.MustCompile(`(?i)\bcompute\s+instances\s+delete\b`),
	regexp.MustCompile(`(?i)\bprojects\s+delete\b`),
	regexp.MustCompile(`(?i)\bcontainer\s+clusters\s+delete\b`),
	regexp.MustCompile(`(?i)\bgsutil\s+rm\s+-r\b`),
	regexp.MustCompile(`(?i)\bvm\s+delete\b`),
	regexp.MustCompile(`(?i)\bgroup\s+delete\b`),
	regexp.MustCompile(`(?i)\baks\s+delete\b`),
	regexp.MustCompile(`(?i)\bdelete\s+(namespace|ns)\b`),
	regexp.MustCompile(`(?i)\bdelete\s+pods\s+(--all|-A)\b`),
	regexp.MustCompile(`(?i)\bhelm\s+uninstall\b`),
	regexp.MustCompile(`(?i)\bterraform\s+destroy\b`),
	regexp.MustCompile(`(?i)\bapply\s+-auto-approve\b`),
	regexp.MustCompile(`(?i)\bterragrunt\s+destroy\b`),
	regexp.MustCompile(`(?i)\bpulumi\s+destroy\b`),
}

var gitDestructivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpush\s+--force\b.*\b(main|master)\b`),
	regexp.MustCompile(`(?i)\breset\s+--hard\b`),
	regexp.MustCompile(`(?i)\bclean\s+-fd\b`),
	regexp.MustCompile(`(?i)\bbranch\s+-D\b`),
	regexp.MustCompile(`(?i)\bcheckout\s+\.\s*$`),
}

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bshutil\.rmtree\b`),
	regexp.MustCompile(`(?i)\bos\.remove(dirs)?\b`),
	regexp.MustCompile(`(?i)\bos\.rmdir\b`),
	regexp.MustCompile(`(?i)\bsubprocess\.\w+\(.*\brm\b`),
	regexp.MustCompile(`(?i)\bfs\.rm(Sync)?\(`),
	regexp.MustCompile(`(?i)\bfs\.unlink\b`),
	regexp.MustCompile(`(?i)\brimraf\b`),
	regexp.MustCompile(`(?i)\bfs-extra\b.*\bremove\b`),
	regexp.MustCompile(`(?i)\bos\.RemoveAll\b`),
	regexp.MustCompile(`(?i)\bos\.Remove\(`),
	regexp.MustCompile(`(?i)\bfs::remove_dir_all\b`),
	regexp.MustCompile(`(?i)\bfs::remove_file\b`),
	regexp.MustCompile(`(?i)\bFileUtils\.rm_rf?\b`),
	regexp.MustCompile(`(?i)\bFileUtils\.deleteDirectory\b`),
	regexp.MustCompile(`(?i)\bFiles\.delete\b`),
	regexp.MustCompile(`(?i)\bDirectory\.Delete\(.*true\)`),
	regexp.MustCompile(`(?i)\bFile\.Delete\(`),
	regexp.MustCompile(`(?i)\bunlink\(`),
	regexp.MustCompile(`(?i)\brmdir\(`),
}

// DestructiveDetector implements spec §4.B.3: shell, cloud, and code
// sub-detectors, each independently toggleable.
type DestructiveDetector struct {
	cfg DestructiveConfig
}

func NewDestructiveDetector(cfg DestructiveConfig) *DestructiveDetector {
	return &DestructiveDetector{cfg: cfg}
}

func (d *DestructiveDetector) Name() string { return "destructive" }

func (d *DestructiveDetector) Detect(ctx context.Context, tc ToolCallContext) (*Detection, error) {
	if !d.cfg.Enabled {
		return nil, nil
	}
	text := concatCommandText(tc.ToolInput)
	if text == "" {
		return nil, nil
	}

	type hit struct {
		confidence float64
		reason     string
		subtype    string
	}
	var hits []hit

	if d.cfg.ShellEnabled {
		for _, re := range shellPatterns {
			if loc := re.FindStringIndex(text); loc != nil {
				conf := 0.85
				if re == deleteFromNoWhere && hasWhere.MatchString(text) {
					continue
				}
				for _, tok := range dangerousPathTokens {
					if containsToken(text, tok) {
						conf = 0.97
						break
					}
				}
				hits = append(hits, hit{conf, "shell command matches a destructive pattern: " + re.String(), "shell"})
			}
		}
	}
	if d.cfg.CloudEnabled {
		for _, re := range cloudPatterns {
			if re.MatchString(text) {
				hits = append(hits, hit{0.9, "cloud CLI command is destructive: " + re.String(), "cloud"})
			}
		}
		for _, re := range gitDestructivePatterns {
			if re.MatchString(text) {
				hits = append(hits, hit{0.85, "git command is destructive: " + re.String(), "git"})
			}
		}
	}
	if d.cfg.CodeEnabled {
		for _, re := range codePatterns {
			if re.MatchString(text) {
				hits = append(hits, hit{0.8, "code calls a destructive filesystem function: " + re.String(), "code"})
			}
		}
	}

	if len(hits) == 0 {
		return nil, nil
	}

	best := hits[0]
	confidences := make([]float64, len(hits))
	for i, h := range hits {
		confidences[i] = h.confidence
		if h.confidence > best.confidence {
			best = h
		}
	}

	return &Detection{
		Category:   CategoryDestructive,
		Severity:   d.cfg.Severity,
		Confidence: CombineConfidence(confidences),
		Reason:     best.reason,
		Metadata:   map[string]any{"type": best.subtype},
	}, nil
}

func containsToken(text, tok string) bool {
	for i := 0; i+len(tok) <= len(text); i++ {
		if text[i:i+len(tok)] == tok {
			return true
		}
	}
	return false
}
