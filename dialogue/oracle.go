package dialogue

import (
	"context"
	"fmt"

	"drivendev/logger"
	"drivendev/modelapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Oracle runs the three kinds of LLM call the engine makes. None of them
// return an error: failures degrade to a default label, an apology text or
// an incomplete verdict so the conversation can always continue.
type Oracle struct {
	logger    *logger.LogMiddleware
	completer modelapi.Completer
}

func NewOracle(log *logger.LogMiddleware, completer modelapi.Completer) *Oracle {
	return &Oracle{logger: log, completer: completer}
}

// Classify asks for a scenario label. ok is false when the call failed or
// the reply named none of the allowed scenarios.
func (o *Oracle) Classify(ctx context.Context, classifier, message string, temperature float64, allowed []Scenario) (Scenario, bool) {
	tracer := otel.Tracer("dialogue/Classify")
	ctx, span := tracer.Start(ctx, "Classify")
	defer span.End()

	userText := fmt.Sprintf(modelapi.CLASSIFIER_USER_FORMAT, classifier, message)
	reply, err := o.completer.Complete(ctx, modelapi.CLASSIFIER_SYSTEM_PROMPT, userText, temperature)
	if err != nil {
		span.RecordError(err)
		o.logger.Logger(ctx).Error("[Dialogue] Classification call failed", zap.Error(err))
		return ScenarioUnset, false
	}

	scenario, ok := ParseScenario(reply, allowed)
	span.SetAttributes(attribute.String("reply", reply), attribute.String("scenario", scenario.String()))
	if !ok {
		o.logger.Logger(ctx).Warn("[Dialogue] Classification reply matched no scenario", zap.String("reply", reply))
	}
	return scenario, ok
}

// Respond generates NOVA's reply. On failure the apology text is returned
// in its place.
func (o *Oracle) Respond(ctx context.Context, systemPrompt, message string) string {
	tracer := otel.Tracer("dialogue/Respond")
	ctx, span := tracer.Start(ctx, "Respond")
	defer span.End()

	span.SetAttributes(attribute.Int("prompt.length", len(systemPrompt)))

	reply, err := o.completer.Complete(ctx, systemPrompt, message, modelapi.RESPONSE_TEMPERATURE)
	if err != nil {
		span.RecordError(err)
		o.logger.Logger(ctx).Error("[Dialogue] Response call failed", zap.Error(err))
		return fmt.Sprintf(modelapi.APOLOGY_FORMAT, err.Error())
	}
	return reply
}

// Validate runs a completeness prompt over the conversation context.
func (o *Oracle) Validate(ctx context.Context, validationPrompt, conversation string) (bool, string) {
	tracer := otel.Tracer("dialogue/Validate")
	ctx, span := tracer.Start(ctx, "Validate")
	defer span.End()

	reply, err := o.completer.Complete(ctx, validationPrompt, conversation, modelapi.VALIDATION_TEMPERATURE)
	if err != nil {
		span.RecordError(err)
		o.logger.Logger(ctx).Error("[Dialogue] Validation call failed", zap.Error(err))
		return false, validationErrorMissing
	}

	complete, missing := ParseValidation(reply)
	span.SetAttributes(attribute.Bool("complete", complete), attribute.String("missing", missing))
	return complete, missing
}
