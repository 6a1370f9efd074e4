package domain

import "errors"

// User-facing Urdu strings.
const (
	MsgUnintelligible     = "آواز کو پہچانا نہیں جا سکا۔ براہ کرم واضح طور پر بولیں۔"
	MsgSpeechUnavailable  = "سپیچ سروس سے کنکشن میں مسئلہ ہے۔"
	MsgServerError        = "سرور میں مسئلہ ہوا۔"
	MsgOffTopicDeflection = "میں زراعت کے بارے میں مدد کر سکتا ہوں، کیا آپ کو کسی فصل کے بارے میں کوئی سوال ہے؟"
)

var fallbackMessages = map[FailureKind]string{
	FailureMissingCredential: "API کلیدیں غائب ہیں۔ براہ کرم سسٹم ایڈمن سے رابطہ کریں۔",
	FailureAuth:              "API کلیدیں غلط ہیں۔ براہ کرم سسٹم ایڈمن سے رابطہ کریں۔",
	FailureRateLimit:         "سرور مصروف ہے۔ براہ کرم تھوڑی دیر بعد کوشش کریں۔",
	FailureTimeout:           "معذرت، سرور کا جواب موصول نہیں ہوا۔ براہ کرم دوبارہ کوشش کریں۔",
	FailureConnection:        "معذرت، انٹرنیٹ کنکشن میں مسئلہ ہے۔ براہ کرم کنکشن چیک کریں۔",
	FailureMalformed:         "معذرت، سرور سے مناسب جواب حاصل نہیں ہو سکا۔",
	FailureServer:            "معذرت، سرور سے جواب حاصل کرنے میں مسئلہ پیش آیا۔ براہ کرم دوبارہ کوشش کریں۔",
	FailureUnexpected:        "معذرت، غیر متوقع مسئلہ پیش آیا۔ براہ کرم دوبارہ کوشش کریں۔",
}

// TranscriptPlaceholder returns the Urdu text substituted for a failed transcription.
func TranscriptPlaceholder(err error) string {
	if errors.Is(err, ErrUnintelligible) {
		return MsgUnintelligible
	}
	return MsgSpeechUnavailable
}
