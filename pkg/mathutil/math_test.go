package mathutil

import (
	"testing"
)

func TestClampFloat(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		min   float64
		max   float64
		want  float64
	}{
		{
			name:  "value within range",
			value: 0.5,
			min:   0,
			max:   1,
			want:  0.5,
		},
		{
			name:  "value below min",
			value: -0.2,
			min:   0,
			max:   1,
			want:  0,
		},
		{
			name:  "value above max",
			value: 1.7,
			min:   0,
			max:   1,
			want:  1,
		},
		{
			name:  "value at min boundary",
			value: 0.1,
			min:   0.1,
			max:   1.0,
			want:  0.1,
		},
		{
			name:  "value at max boundary",
			value: 1.0,
			min:   0.1,
			max:   1.0,
			want:  1.0,
		},
		{
			name:  "importance scoring range",
			value: 1.23,
			min:   0.1,
			max:   1.0,
			want:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampFloat(tt.value, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("ClampFloat(%v, %v, %v) = %v, want %v", tt.value, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		name  string
		value int
		min   int
		max   int
		want  int
	}{
		{
			name:  "value within range",
			value: 5,
			min:   0,
			max:   10,
			want:  5,
		},
		{
			name:  "value at min boundary",
			value: 0,
			min:   0,
			max:   10,
			want:  0,
		},
		{
			name:  "value at max boundary",
			value: 10,
			min:   0,
			max:   10,
			want:  10,
		},
		{
			name:  "value below min",
			value: -5,
			min:   0,
			max:   10,
			want:  0,
		},
		{
			name:  "value above max",
			value: 15,
			min:   0,
			max:   10,
			want:  10,
		},
		{
			name:  "negative range value within",
			value: -5,
			min:   -10,
			max:   -1,
			want:  -5,
		},
		{
			name:  "negative range value below",
			value: -15,
			min:   -10,
			max:   -1,
			want:  -10,
		},
		{
			name:  "negative range value above",
			value: 5,
			min:   -10,
			max:   -1,
			want:  -1,
		},
		{
			name:  "min equals max value equals both",
			value: 5,
			min:   5,
			max:   5,
			want:  5,
		},
		{
			name:  "min equals max value below",
			value: 3,
			min:   5,
			max:   5,
			want:  5,
		},
		{
			name:  "min equals max value above",
			value: 7,
			min:   5,
			max:   5,
			want:  5,
		},
		{
			name:  "large positive value",
			value: 1000000,
			min:   0,
			max:   100,
			want:  100,
		},
		{
			name:  "large negative value",
			value: -1000000,
			min:   0,
			max:   100,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampInt(tt.value, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("ClampInt(%d, %d, %d) = %d, want %d", tt.value, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		defaultVal int
		maxVal     int
		want       int
	}{
		{
			name:       "limit within range",
			limit:      50,
			defaultVal: 20,
			maxVal:     100,
			want:       50,
		},
		{
			name:       "limit zero returns default",
			limit:      0,
			defaultVal: 20,
			maxVal:     100,
			want:       20,
		},
		{
			name:       "limit negative returns default",
			limit:      -10,
			defaultVal: 20,
			maxVal:     100,
			want:       20,
		},
		{
			name:       "limit exceeds max returns max",
			limit:      150,
			defaultVal: 20,
			maxVal:     100,
			want:       100,
		},
		{
			name:       "limit equals max",
			limit:      100,
			defaultVal: 20,
			maxVal:     100,
			want:       100,
		},
		{
			name:       "limit equals default",
			limit:      20,
			defaultVal: 20,
			maxVal:     100,
			want:       20,
		},
		{
			name:       "limit of 1",
			limit:      1,
			defaultVal: 20,
			maxVal:     100,
			want:       1,
		},
		{
			name:       "very large limit clamped to max",
			limit:      1000000,
			defaultVal: 20,
			maxVal:     100,
			want:       100,
		},
		{
			name:       "typical pagination scenario",
			limit:      25,
			defaultVal: 10,
			maxVal:     50,
			want:       25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampLimit(tt.limit, tt.defaultVal, tt.maxVal)
			if got != tt.want {
				t.Errorf("ClampLimit(%d, %d, %d) = %d, want %d", tt.limit, tt.defaultVal, tt.maxVal, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	const eps = 1e-9

	a := []float32{0.3, -1.2, 4.5, 0.7}
	b := []float32{2.1, 0.4, -0.9, 3.3}

	if got := CosineSimilarity(a, a); got < 1-eps || got > 1+eps {
		t.Errorf("self similarity = %v, want 1.0", got)
	}
	if ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a); ab != ba {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); got > -1+eps || got < -1-eps {
		t.Errorf("opposite vectors = %v, want -1", got)
	}
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Errorf("empty vectors = %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 2}); got != 0 {
		t.Errorf("zero vector = %v, want 0", got)
	}
}
