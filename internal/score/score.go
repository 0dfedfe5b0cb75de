// Package score computes the removal-severity score that decides whether a
// user gets banned. It is pure arithmetic over the aggregated counts produced
// by the ranking query and has no side effects.
package score

// DefaultThreshold is the ban threshold applied to the summed sub-scores.
const DefaultThreshold = 4.0

// Score weighs a (comments, posts) removal pair from one source using a
// contraharmonic mean: (a² + b²) / (2a) for a > 0, else 0. Disproportionate
// post removal is penalized more when comment removals are few, and the
// score scales with absolute comment-removal volume.
func Score(comments, posts int64) float64 {
	if comments <= 0 {
		return 0
	}
	a := float64(comments)
	b := float64(posts)
	return (a*a + b*b) / (2 * a)
}

// Verdict sums the moderator and platform sub-scores and compares against
// the threshold. It returns the total and whether a ban should be issued.
func Verdict(modComments, modPosts, redditComments, redditPosts int64, threshold float64) (float64, bool) {
	total := Score(modComments, modPosts) + Score(redditComments, redditPosts)
	return total, total >= threshold
}
