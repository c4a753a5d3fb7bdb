package detect

import (
	"context"
	"regexp"
)

var httpUploadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcurl\b.*(-X\s*(POST|PUT)|--data|-d\s|--data-binary|--data-raw|-T\s|-F\s*@)`),
	regexp.MustCompile(`(?i)\bwget\b.*--post-`),
	regexp.MustCompile(`(?i)\bhttp(ie)?\s+(POST|PUT)\b.*[=:]`),
	regexp.MustCompile(`(?i)\bfetch\(\s*['"][^'"]*['"]\s*,\s*\{[^}]*method\s*:\s*['"]POST['"][^}]*body`),
	regexp.MustCompile(`(?i)\baxios\.post\(`),
	regexp.MustCompile(`(?i)\brequests\.post\(`),
	regexp.MustCompile(`(?i)\bhttpx\.post\(`),
	regexp.MustCompile(`(?i)\bInvoke-WebRequest\b.*-Method\s+POST`),
}

var encodedPipedUpload = regexp.MustCompile(`(?i)(base64|gzip|openssl\s+enc)[^|]*\|\s*(curl|wget|nc|ncat)`)

var cloudUploadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\baws\s+s3\s+(cp|mv|sync)\b`),
	regexp.MustCompile(`(?i)\bs3api\s+put-object\b`),
	regexp.MustCompile(`(?i)\bgsutil\s+(cp|mv|rsync)\b`),
	regexp.MustCompile(`(?i)\bgcloud\s+storage\s+cp\b`),
	regexp.MustCompile(`(?i)\bazcopy\s+(copy|sync)\b`),
	regexp.MustCompile(`(?i)\baz\s+storage\s+blob\s+upload(-batch)?\b`),
	regexp.MustCompile(`(?i)\brclone\s+(copy|sync|move)\b`),
	regexp.MustCompile(`(?i)\bs3cmd\s+put\b`),
	regexp.MustCompile(`(?i)\bmc\s+cp\b`),
	regexp.MustCompile(`(?i)\bboto3\.(upload_file|put_object)\b`),
	regexp.MustCompile(`(?i)\bblob\.upload_from_filename\b`),
	regexp.MustCompile(`(?i)\bupload_blob\b`),
	regexp.MustCompile(`(?i)\bs3\.upload\(`),
}

var cloudDownloadHint = regexp.MustCompile(`(?i)\b(cp|sync|mv)\s+s3://\S+\s+\S+$`)

var networkExfilPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bnc\s+-e\b`),
	regexp.MustCompile(`(?i)\bncat\s+(--exec|--send-only)\b`),
	regexp.MustCompile(`(?i)<\s*\S+\s*\|\s*nc\b`),
	regexp.MustCompile(`(?i)\bnc\s+.*<\s*\S+`),
	regexp.MustCompile(`>\s*/dev/(tcp|udp)/`),
	regexp.MustCompile(`(?i)exec\s+\d+<>/dev/(tcp|udp)/`),
	regexp.MustCompile(`(?i)\bsocat\s+FILE:.*TCP:`),
	regexp.MustCompile(`(?i)\bsocat\b.*EXEC:`),
	regexp.MustCompile(`(?i)\btelnet\s+\S+\s+\d+\s*<`),
	regexp.MustCompile(`(?i)\bscp\s+\S+\s+\S+@\S+:`),
	regexp.MustCompile(`(?i)\brsync\b.*\S+@\S+:`),
	regexp.MustCompile(`(?i)\bcat\s+\S+\s*\|\s*ssh\b`),
	regexp.MustCompile(`(?i)\bsftp\s+put\b`),
	regexp.MustCompile(`(?i)\bnslookup\b.*\.[a-z0-9]{40,}\.`),
	regexp.MustCompile(`(?i)\bdig\s+TXT\b.*\.[a-z0-9]{40,}\.`),
}

// ExfiltrationDetector implements spec §4.B.5: HTTP-upload, cloud-upload
// (direction-sensitive), and network sub-detectors.
type ExfiltrationDetector struct {
	cfg ExfiltrationConfig
}

func NewExfiltrationDetector(cfg ExfiltrationConfig) *ExfiltrationDetector {
	return &ExfiltrationDetector{cfg: cfg}
}

func (d *ExfiltrationDetector) Name() string { return "exfiltration" }

func (d *ExfiltrationDetector) Detect(ctx context.Context, tc ToolCallContext) (*Detection, error) {
	if !d.cfg.Enabled {
		return nil, nil
	}
	text := concatCommandText(tc.ToolInput)
	if text == "" {
		return nil, nil
	}

	type hit struct {
		confidence float64
		method     string
	}
	var hits []hit

	for _, re := range httpUploadPatterns {
		if re.MatchString(text) {
			conf := 0.85
			if encodedPipedUpload.MatchString(text) {
				conf = 0.97
			}
			hits = append(hits, hit{conf, "http-upload"})
			break
		}
	}
	for _, re := range cloudUploadPatterns {
		if re.MatchString(text) && !cloudDownloadHint.MatchString(text) {
			hits = append(hits, hit{0.85, "cloud-upload"})
			break
		}
	}
	for _, re := range networkExfilPatterns {
		if re.MatchString(text) {
			hits = append(hits, hit{0.85, "network"})
			break
		}
	}

	if len(hits) == 0 {
		return nil, nil
	}

	confidences := make([]float64, len(hits))
	methods := make([]string, len(hits))
	for i, h := range hits {
		confidences[i] = h.confidence
		methods[i] = h.method
	}
	combined := CombineConfidence(confidences)
	reason := "exfiltration pattern detected via " + methods[0]
	if len(hits) > 1 {
		reason += " (confirmed by " + itoa(len(hits)) + " detection methods)"
	}

	return &Detection{
		Category:   CategoryExfiltration,
		Severity:   d.cfg.Severity,
		Confidence: combined,
		Reason:     reason,
		Metadata:   map[string]any{"methods": methods},
	}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
