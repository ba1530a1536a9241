package models

// Analysis is the precomputed NLP feature set attached to an article. It is
// produced by the analyzer service and treated as immutable input to scoring.
// Sections the analyzer omitted stay nil and score as neutral defaults.
type Analysis struct {
	Sentiment      *Sentiment      `json:"sentiment,omitempty"`
	Entities       []string        `json:"entities,omitempty"` // deduplicated, at most 15; nil when the analyzer produced no entity section
	Keywords       []string        `json:"keywords,omitempty"`
	Readability    *Readability    `json:"readability,omitempty"`
	Topics         []string        `json:"topics,omitempty"`
	UrgencyScore   float64         `json:"urgency_score"`
	Engagement     *Engagement     `json:"engagement_features,omitempty"`
	ContentQuality *ContentQuality `json:"content_quality,omitempty"`
	TitleAnalysis  *TitleAnalysis  `json:"title_analysis,omitempty"`
}

// Sentiment summarizes the tone of the article body.
type Sentiment struct {
	Score              float64 `json:"score"` // 0-1, 0.5 is neutral
	Label              string  `json:"label"` // "positive", "negative", "neutral"
	PositiveIndicators int     `json:"positive_indicators"`
	NegativeIndicators int     `json:"negative_indicators"`
}

// Readability classifies how hard the article is to read.
type Readability struct {
	FleschScore float64 `json:"flesch_score"`
	GradeLevel  float64 `json:"grade_level"`
	Level       string  `json:"readability"` // "easy", "medium", "difficult"
}

// Engagement captures structural text features that predict interaction.
// Length fields count words, not characters.
type Engagement struct {
	TitleLength       int     `json:"title_length"`
	HasNumbers        bool    `json:"has_numbers"`
	HasQuestion       bool    `json:"has_question"`
	HasExclamation    bool    `json:"has_exclamation"`
	TitleSentiment    float64 `json:"title_sentiment"`
	ContentLength     int     `json:"content_length"`
	ParagraphCount    int     `json:"paragraph_count"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	QuotationCount    int     `json:"quotation_count"`
	TriggerWordCount  int     `json:"trigger_word_count"`
}

// ContentQuality aggregates prose quality metrics.
type ContentQuality struct {
	SentenceCount      int     `json:"sentence_count"`
	AvgSentenceLength  float64 `json:"avg_sentence_length"`
	SentenceVariety    float64 `json:"sentence_variety"`
	ComplexSentences   int     `json:"complex_sentences"`
	InformationDensity float64 `json:"information_density"`
	OverallScore       float64 `json:"overall_score"` // 0-1
}

// TitleAnalysis measures headline effectiveness.
type TitleAnalysis struct {
	WordCount          int     `json:"word_count"`
	CharacterCount     int     `json:"character_count"`
	CapitalizedWords   int     `json:"capitalized_words"`
	HasColon           bool    `json:"has_colon"`
	PowerWords         int     `json:"power_words"`
	EmotionalWords     int     `json:"emotional_words"`
	EffectivenessScore float64 `json:"effectiveness_score"` // 0-1
}
