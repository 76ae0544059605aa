package classify

import "labelocr/pkg/models"

// ComparePageLengths decides which text source is authoritative for a
// page-specific OCR run. Pages are paired by index up to the shorter sequence;
// OCR wins as soon as a single page gains more than minGain characters.
// A non-positive minGain uses MinOCRGain.
func ComparePageLengths(original, ocr []int, minGain int) models.Verdict {
	if minGain <= 0 {
		minGain = MinOCRGain
	}

	n := len(original)
	if len(ocr) < n {
		n = len(ocr)
	}
	for i := 0; i < n; i++ {
		if ocr[i]-original[i] > minGain {
			return models.VerdictOCR
		}
	}
	return models.VerdictOriginal
}
