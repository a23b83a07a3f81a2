package decorr

// JointStereo applies WavPack's mid/side transform in place (spec
// §4.5, flag JOINT_STEREO): `right += (left -= right) >> 1`. Grounded
// on original_source/src/pack.c's one-line lossless-stereo transform.
func JointStereo(left, right []int32) {
	for i := range left {
		left[i] -= right[i]
		right[i] += left[i] >> 1
	}
}

// InverseJointStereo undoes JointStereo (spec §8 invariant 4: the pair
// is involutive up to this exact left/right ordering):
// `left += (right -= left >> 1)`.
func InverseJointStereo(left, right []int32) {
	for i := range left {
		right[i] -= left[i] >> 1
		left[i] += right[i]
	}
}
