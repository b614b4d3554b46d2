package assessment

import (
	"sort"
)

// SubjectStats summarizes raw scores for one subject.
type SubjectStats struct {
	Subject string
	Average float64
	Min     float64
	Max     float64
	Count   int
}

// Aggregate groups raw scores by subject. Subjects without records are absent,
// so no average is ever computed over zero items. Output is sorted by subject.
func Aggregate(items []*Assessment) []SubjectStats {
	bySubject := make(map[string]*SubjectStats)
	sums := make(map[string]float64)
	for _, a := range items {
		st, ok := bySubject[a.Subject]
		if !ok {
			st = &SubjectStats{Subject: a.Subject, Min: a.Score, Max: a.Score}
			bySubject[a.Subject] = st
		}
		if a.Score < st.Min {
			st.Min = a.Score
		}
		if a.Score > st.Max {
			st.Max = a.Score
		}
		st.Count++
		sums[a.Subject] += a.Score
	}

	out := make([]SubjectStats, 0, len(bySubject))
	for subject, st := range bySubject {
		st.Average = sums[subject] / float64(st.Count)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// KindAverage is the mean raw score of one kind within a subject.
type KindAverage struct {
	Kind    Kind
	Average float64
	Count   int
}

type SubjectReport struct {
	Subject string
	Kinds   []KindAverage // in Kinds order, only kinds with records
	Average float64       // over every record of the subject
	Count   int
}

// TermReport is the per-student bulletin for one term.
type TermReport struct {
	StudentID int64
	Term      int
	Subjects  []SubjectReport
}

// BuildTermReport groups a student's records of one term by subject, then by kind.
// Records of other students or terms are ignored.
func BuildTermReport(studentID int64, term int, items []*Assessment) TermReport {
	type acc struct {
		sum   float64
		count int
	}
	subjects := make(map[string]map[Kind]*acc)
	for _, a := range items {
		if a.StudentID != studentID || a.Term != term {
			continue
		}
		kinds, ok := subjects[a.Subject]
		if !ok {
			kinds = make(map[Kind]*acc)
			subjects[a.Subject] = kinds
		}
		k, ok := kinds[a.Kind]
		if !ok {
			k = &acc{}
			kinds[a.Kind] = k
		}
		k.sum += a.Score
		k.count++
	}

	report := TermReport{StudentID: studentID, Term: term}
	for subject, kinds := range subjects {
		sr := SubjectReport{Subject: subject}
		var total float64
		for _, kind := range Kinds {
			k, ok := kinds[kind]
			if !ok {
				continue
			}
			sr.Kinds = append(sr.Kinds, KindAverage{Kind: kind, Average: k.sum / float64(k.count), Count: k.count})
			total += k.sum
			sr.Count += k.count
		}
		// kinds outside the known set still count toward the subject average
		for kind, k := range kinds {
			if !kind.Valid() {
				total += k.sum
				sr.Count += k.count
			}
		}
		sr.Average = total / float64(sr.Count)
		report.Subjects = append(report.Subjects, sr)
	}
	sort.Slice(report.Subjects, func(i, j int) bool { return report.Subjects[i].Subject < report.Subjects[j].Subject })
	return report
}

// KindSummary is a dashboard line: how many records of a kind and their mean normalized score.
type KindSummary struct {
	Kind              Kind
	Count             int
	AverageNormalized float64
}

// SummarizeKinds returns one line per kind that has records, in Kinds order.
// Records with an invalid max score are counted but left out of the average.
func SummarizeKinds(items []*Assessment, scale float64) []KindSummary {
	type acc struct {
		sum    float64
		scored int
		count  int
	}
	byKind := make(map[Kind]*acc)
	for _, a := range items {
		k, ok := byKind[a.Kind]
		if !ok {
			k = &acc{}
			byKind[a.Kind] = k
		}
		k.count++
		if n, err := a.Normalized(scale); err == nil {
			k.sum += n
			k.scored++
		}
	}

	var out []KindSummary
	for _, kind := range Kinds {
		k, ok := byKind[kind]
		if !ok {
			continue
		}
		ks := KindSummary{Kind: kind, Count: k.count}
		if k.scored > 0 {
			ks.AverageNormalized = k.sum / float64(k.scored)
		}
		out = append(out, ks)
	}
	return out
}
