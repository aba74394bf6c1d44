package textract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/textract"
)

var ErrUnsupportedDocument = errors.New("unsupported document")

type Query struct {
	Text  string
	Alias string
}

// FieldResult carries the extracted text with its confidence normalized to 0..1.
type FieldResult struct {
	Text       string
	Confidence float64
}

type ItfTextract interface {
	AnalyzeCard(ctx context.Context, image []byte, queries []Query) (map[string]FieldResult, error)
}

type textractClient struct {
	client *textract.Textract
}

func New() (ItfTextract, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &textractClient{client: textract.New(sess)}, nil
}

func newSession() (*session.Session, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "ap-northeast-2"
	}

	cfg := aws.NewConfig().WithRegion(region)
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return sess, nil
}

func (t *textractClient) AnalyzeCard(ctx context.Context, image []byte, queries []Query) (map[string]FieldResult, error) {
	if len(queries) == 0 {
		return map[string]FieldResult{}, nil
	}

	qs := make([]*textract.Query, 0, len(queries))
	for _, q := range queries {
		qs = append(qs, &textract.Query{
			Text:  aws.String(q.Text),
			Alias: aws.String(q.Alias),
		})
	}

	out, err := t.client.AnalyzeDocumentWithContext(ctx, &textract.AnalyzeDocumentInput{
		Document:     &textract.Document{Bytes: image},
		FeatureTypes: aws.StringSlice([]string{textract.FeatureTypeQueries}),
		QueriesConfig: &textract.QueriesConfig{
			Queries: qs,
		},
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case textract.ErrCodeUnsupportedDocumentException, textract.ErrCodeInvalidParameterException:
				return nil, ErrUnsupportedDocument
			}
		}
		return nil, fmt.Errorf("failed to analyze document: %w", err)
	}

	return collectAnswers(out), nil
}

// collectAnswers joins QUERY blocks to their QUERY_RESULT answers by block id.
func collectAnswers(out *textract.AnalyzeDocumentOutput) map[string]FieldResult {
	answers := make(map[string]*textract.Block)
	for _, b := range out.Blocks {
		if aws.StringValue(b.BlockType) == textract.BlockTypeQueryResult {
			answers[aws.StringValue(b.Id)] = b
		}
	}

	results := make(map[string]FieldResult)
	for _, b := range out.Blocks {
		if aws.StringValue(b.BlockType) != textract.BlockTypeQuery || b.Query == nil {
			continue
		}

		alias := aws.StringValue(b.Query.Alias)
		for _, rel := range b.Relationships {
			if aws.StringValue(rel.Type) != textract.RelationshipTypeAnswer {
				continue
			}
			for _, id := range rel.Ids {
				answer, ok := answers[aws.StringValue(id)]
				if !ok {
					continue
				}
				candidate := FieldResult{
					Text:       aws.StringValue(answer.Text),
					Confidence: aws.Float64Value(answer.Confidence) / 100,
				}
				if existing, ok := results[alias]; !ok || candidate.Confidence > existing.Confidence {
					results[alias] = candidate
				}
			}
		}
	}

	return results
}
