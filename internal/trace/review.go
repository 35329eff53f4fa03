package trace

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/model"
)

// ReviewStatus is the freshness of one aligned document
type ReviewStatus string

const (
	StatusCurrent           ReviewStatus = "current"
	StatusNeedsReview       ReviewStatus = "needs_review"
	StatusNoBlockTimestamp  ReviewStatus = "no_block_timestamp"
	StatusNoReviewTimestamp ReviewStatus = "no_review_timestamp"
	StatusMissing           ReviewStatus = "missing"
)

// needsUpdate reports whether the document has to be looked at before commit
func (s ReviewStatus) needsUpdate() bool {
	return s == StatusNeedsReview || s == StatusNoReviewTimestamp || s == StatusMissing
}

const previewLength = 200

// ReviewDoc is one aligned document of a reviewed block
type ReviewDoc struct {
	Path          string       `json:"path"`
	Anchor        string       `json:"anchor,omitempty"`
	Exists        bool         `json:"exists"`
	RequiresHuman bool         `json:"requires_human"`
	LastReviewed  *time.Time   `json:"last_reviewed,omitempty"`
	Status        ReviewStatus `json:"review_status"`
	Preview       string       `json:"section_preview,omitempty"`
}

// ReviewBlock is one block of the reviewed file
type ReviewBlock struct {
	Name        string      `json:"name"`
	Lines       string      `json:"lines"`
	LastUpdated *time.Time  `json:"last_updated,omitempty"`
	Comment     string      `json:"last_update_comment,omitempty"`
	Docs        []ReviewDoc `json:"aligned_docs"`
}

// Requirements counts the distinct documents a change would touch
type Requirements struct {
	TotalDocs      int `json:"total_docs"`
	RequiresHuman  int `json:"requires_human"`
	RequiresUpdate int `json:"requires_update"`
	AlreadyCurrent int `json:"already_current"`
}

// ImpactLevel grades the review effort of a change
type ImpactLevel string

const (
	ImpactMinimal ImpactLevel = "minimal"
	ImpactLow     ImpactLevel = "low"
	ImpactMedium  ImpactLevel = "medium"
	ImpactHigh    ImpactLevel = "high"
)

// Impact is the estimated review effort
type Impact struct {
	Level        ImpactLevel `json:"level"`
	Description  string      `json:"description"`
	TimeEstimate string      `json:"time_estimate"`
}

// Review lists what documentation a change to a file would need reviewed
type Review struct {
	File         string        `json:"file"`
	Blocks       []ReviewBlock `json:"blocks"`
	Documents    []ReviewDoc   `json:"documents_to_review"`
	Requirements Requirements  `json:"review_requirements"`
	Impact       Impact        `json:"estimated_impact"`
}

// ReviewFile builds the pre-flight review of file
func ReviewFile(m *model.AlignmentMap, reader docs.Reader, file string) (*Review, error) {
	fm, ok := m.Mapping(file)
	if !ok {
		return nil, fmt.Errorf("%s: %w", file, ErrUnmappedFile)
	}
	classifier, err := m.Hierarchy.NewClassifier()
	if err != nil {
		return nil, err
	}

	r := &Review{File: fm.File, Blocks: []ReviewBlock{}, Documents: []ReviewDoc{}}
	loader := newLoader(reader)
	seen := make(map[string]bool)

	for _, b := range fm.Blocks {
		rb := ReviewBlock{
			Name:        b.Name,
			Lines:       b.Lines.String(),
			LastUpdated: b.LastUpdated,
			Comment:     b.LastUpdateComment,
			Docs:        []ReviewDoc{},
		}
		for _, ref := range b.AlignedWith {
			if ref.IsCode() {
				continue
			}
			rd := reviewDoc(loader.load(ref.Path), ref, b)
			rd.RequiresHuman = classifier.Classify(ref.Path) == model.TierHuman
			rb.Docs = append(rb.Docs, rd)

			if seen[ref.Path] {
				continue
			}
			seen[ref.Path] = true
			r.Documents = append(r.Documents, rd)
			r.Requirements.TotalDocs++
			if rd.RequiresHuman {
				r.Requirements.RequiresHuman++
			}
			switch {
			case rd.Status.needsUpdate():
				r.Requirements.RequiresUpdate++
			case rd.Status == StatusCurrent:
				r.Requirements.AlreadyCurrent++
			}
		}
		r.Blocks = append(r.Blocks, rb)
	}

	r.Impact = EstimateImpact(r.Requirements)
	return r, nil
}

func reviewDoc(doc *docs.Document, ref model.Ref, b model.Block) ReviewDoc {
	rd := ReviewDoc{Path: ref.Path, Anchor: ref.Anchor, Status: StatusMissing}
	if doc == nil {
		return rd
	}
	rd.Exists = true
	rd.LastReviewed = doc.LastReviewed

	switch {
	case doc.LastReviewed == nil:
		rd.Status = StatusNoReviewTimestamp
	case b.LastUpdated == nil:
		rd.Status = StatusNoBlockTimestamp
	case doc.LastReviewed.Before(*b.LastUpdated):
		rd.Status = StatusNeedsReview
	default:
		rd.Status = StatusCurrent
	}

	if ref.Anchor != "" {
		if s, ok := doc.Section(ref.Anchor); ok {
			rd.Preview = preview(s.Content)
		}
	}
	return rd
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	return string([]rune(s)[:previewLength]) + "..."
}

// EstimateImpact grades the effort implied by req
func EstimateImpact(req Requirements) Impact {
	switch {
	case req.TotalDocs == 0:
		return Impact{ImpactMinimal, "no aligned documents to review", "< 1 minute"}
	case req.RequiresHuman > 0:
		return Impact{ImpactHigh, fmt.Sprintf("requires human review of %d identity/design document(s)", req.RequiresHuman), "15-60 minutes (human review)"}
	case req.RequiresUpdate > 2:
		return Impact{ImpactMedium, fmt.Sprintf("review %d technical documents", req.RequiresUpdate), "5-15 minutes"}
	case req.RequiresUpdate > 0:
		return Impact{ImpactLow, fmt.Sprintf("review %d document(s)", req.RequiresUpdate), "2-5 minutes"}
	}
	return Impact{ImpactMinimal, "all documents are current", "< 1 minute (timestamp update only)"}
}
