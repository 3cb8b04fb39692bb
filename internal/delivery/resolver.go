package delivery

// Resolve returns the documents of docs that are active and tagged with one of
// selected, in catalog order.
func Resolve(order Order, docs []Document, selected []ReviewStage) ([]Document, error) {
	if len(selected) == 0 {
		return nil, ErrNoStagesSelected
	}

	want := NewSelection(selected...)

	var eligible []Document
	for _, d := range docs {
		if d.Active && want.Has(d.ReviewStage) {
			eligible = append(eligible, d)
		}
	}

	if len(eligible) == 0 {
		return nil, &NoEligibleDocumentsError{OrderID: order.ID, Stages: want.Items()}
	}
	return eligible, nil
}

// CountByStage counts active documents per stage. Every stage has an entry.
func CountByStage(docs []Document) map[ReviewStage]int {
	counts := make(map[ReviewStage]int, len(AllStages()))
	for _, s := range AllStages() {
		counts[s] = 0
	}
	for _, d := range docs {
		if d.Active && d.ReviewStage.Valid() {
			counts[d.ReviewStage]++
		}
	}
	return counts
}
