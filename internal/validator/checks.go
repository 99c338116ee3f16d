package validator

import (
	"context"
	"strconv"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/renderer"
	"github.com/jonesrussell/north-cloud/link-validator/internal/signals"
)

// signalStatus maps content signals to verdict statuses.
var signalStatus = map[signals.Signal]domain.Status{
	signals.SignalOK:                  domain.StatusValidated,
	signals.SignalInsufficientContent: domain.StatusBroken,
	signals.SignalErrorPage:           domain.StatusBroken,
	signals.SignalPaywall:             domain.StatusPaywall,
	signals.SignalBotBlock:            domain.StatusBotBlocked,
}

// renderOne renders url and classifies the page. An unreachable service or
// open circuit leaves the URL unresolved for the fallback pass.
func (v *Validator) renderOne(ctx context.Context, url string) outcome {
	scores := v.cfg.Scores

	page, err := v.renderer.Render(ctx, url)
	if err == nil {
		return outcome{verdict: v.detectionVerdict(url, page.HTML), resolved: true, cacheable: true}
	}

	kind, _ := renderer.KindOf(err)
	switch kind {
	case renderer.KindTimeout:
		return outcome{
			verdict:  domain.NewVerdict(url, domain.StatusUncertain, domain.ReasonTimeout, scores),
			resolved: true,
		}
	case renderer.KindInvalidURL:
		return outcome{
			verdict:  domain.NewVerdict(url, domain.StatusBroken, domain.ReasonInvalidURLFormat, scores),
			resolved: true,
		}
	case renderer.KindServiceError:
		reason := domain.ReasonRenderServicePrefix + ":" + strconv.Itoa(renderer.StatusCodeOf(err))
		return outcome{verdict: domain.PassThrough(url, reason, scores), resolved: true}
	case renderer.KindMalformed:
		return outcome{
			verdict:  domain.NewVerdict(url, domain.StatusFlagged, domain.ReasonMalformedResponse, scores),
			resolved: true,
		}
	case renderer.KindUnavailable:
		return outcome{}
	default:
		v.log.Warn("Unclassified render error, falling back",
			logger.String("url", url),
			logger.Error(err),
		)
		return outcome{}
	}
}

func (v *Validator) detectionVerdict(url, body string) domain.Verdict {
	detection := v.detector.Detect(body)

	status, ok := signalStatus[detection.Signal]
	if !ok {
		status = domain.StatusFlagged
	}
	return domain.NewVerdict(url, status, detection.ReasonCode(), v.cfg.Scores)
}

func (v *Validator) checkOne(ctx context.Context, url string) outcome {
	result := v.checker.Check(ctx, url)
	return outcome{
		verdict:   domain.NewVerdict(url, result.Status, result.Reason, v.cfg.Scores),
		resolved:  true,
		cacheable: !result.Transient,
	}
}
