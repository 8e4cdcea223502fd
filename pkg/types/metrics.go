package types

type BinaryMetrics struct {
	TP         int          `json:"tp"`
	TN         int          `json:"tn"`
	FP         int          `json:"fp"`
	FN         int          `json:"fn"`
	Total      int          `json:"total"`
	Accuracy   *float64     `json:"accuracy"`
	Precision  float64      `json:"precision"`
	Recall     float64      `json:"recall"`
	F1         float64      `json:"f1"`
	MCC        float64      `json:"mcc"`
	Skipped    int          `json:"skipped"`
	Excluded   int          `json:"excluded"`
	Duplicates int          `json:"duplicates"`
	Labels     BucketLabels `json:"labels"`
}

type ClassMetrics struct {
	Name      string  `json:"name,omitempty"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Support   int     `json:"support"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

type MultiClassMetrics struct {
	Classes               []string                  `json:"classes"`
	PerClass              map[string]ClassMetrics   `json:"per_class"`
	MacroF1               float64                   `json:"macro_f1"`
	Accuracy              *float64                  `json:"accuracy"`
	Total                 int                       `json:"total"`
	Correct               int                       `json:"correct"`
	ConfusionMatrix       map[string]map[string]int `json:"confusion_matrix"`
	ExpectedDistribution  map[string]int            `json:"expected_distribution"`
	PredictedDistribution map[string]int            `json:"actual_distribution"`
	Excluded              int                       `json:"excluded"`
	Duplicates            int                       `json:"duplicates"`
}

type RubricStats struct {
	Pass     int     `json:"pass"`
	Fail     int     `json:"fail"`
	Error    int     `json:"error"`
	Total    int     `json:"total"`
	PassRate float64 `json:"pass_rate"`
}
