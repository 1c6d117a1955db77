package service

import (
	"context"
	"errors"
	"testing"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/pkg/external"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClinVarSource is a mock implementation of the ClinVarSource interface
type MockClinVarSource struct {
	mock.Mock
}

func (m *MockClinVarSource) Search(ctx context.Context, hgvs string) (*external.SearchResult, error) {
	args := m.Called(ctx, hgvs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*external.SearchResult), args.Error(1)
}

func (m *MockClinVarSource) Fetch(ctx context.Context, id string) (*external.RecordPayloads, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*external.RecordPayloads), args.Error(1)
}

func TestAnnotator_Annotate(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		source := new(MockClinVarSource)
		source.On("Search", ctx, maptHGVS).Return(&external.SearchResult{Found: true, IDs: []string{"578075", "999"}}, nil)
		source.On("Fetch", ctx, "578075").Return(&external.RecordPayloads{
			Detail:  external.Payload{"ReleaseSet": obj{}},
			Summary: summaryWith(maptDocument()),
		}, nil)

		annotator := NewAnnotator(source, NewNormalizer(nil, quietLogger()), quietLogger())
		a, err := annotator.Annotate(ctx, "  "+maptHGVS+" ")

		require.NoError(t, err)
		assert.Equal(t, maptHGVS, a.HGVS)
		assert.Equal(t, "578075", a.ClinVarID.String)
		assert.Equal(t, "Likely benign", a.ClinicalSignificance)
		assert.Equal(t, "NC_000017.11:g.45983420G>T", a.GChange.String)
		source.AssertExpectations(t)
	})

	t.Run("not found skips fetch", func(t *testing.T) {
		source := new(MockClinVarSource)
		source.On("Search", ctx, maptHGVS).Return(&external.SearchResult{Found: false}, nil)

		annotator := NewAnnotator(source, NewNormalizer(nil, quietLogger()), quietLogger())
		a, err := annotator.Annotate(ctx, maptHGVS)

		require.NoError(t, err)
		assert.Equal(t, domain.SignificanceNotFound, a.ClinicalSignificance)
		assert.False(t, a.Found())
		source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("search failure surfaces", func(t *testing.T) {
		source := new(MockClinVarSource)
		upstream := domain.NewExternalServiceError("clinvar", "esearch", 503, errors.New("unavailable"))
		source.On("Search", ctx, maptHGVS).Return(nil, upstream)

		annotator := NewAnnotator(source, NewNormalizer(nil, quietLogger()), quietLogger())
		_, err := annotator.Annotate(ctx, maptHGVS)

		require.Error(t, err)
		assert.True(t, domain.IsExternalServiceError(err))
	})

	t.Run("fetch failure surfaces", func(t *testing.T) {
		source := new(MockClinVarSource)
		source.On("Search", ctx, maptHGVS).Return(&external.SearchResult{Found: true, IDs: []string{"578075"}}, nil)
		source.On("Fetch", ctx, "578075").Return(nil, domain.NewExternalServiceError("clinvar", "efetch", 0, errors.New("reset")))

		annotator := NewAnnotator(source, NewNormalizer(nil, quietLogger()), quietLogger())
		_, err := annotator.Annotate(ctx, maptHGVS)

		var extErr *domain.ExternalServiceError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, "efetch", extErr.Operation)
	})

	t.Run("empty hgvs", func(t *testing.T) {
		source := new(MockClinVarSource)
		annotator := NewAnnotator(source, NewNormalizer(nil, quietLogger()), quietLogger())

		_, err := annotator.Annotate(ctx, " ")

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		source.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})
}
