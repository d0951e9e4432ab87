package services

import (
	"fmt"

	"game-prereg-system/models"

	"golang.org/x/text/language"
)

var supportedLanguages = []language.Tag{
	language.Korean, // default
	language.English,
	language.Japanese,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// NegotiateLanguage picks ko/en/ja from an explicit preference or an
// Accept-Language header, falling back to Korean.
func NegotiateLanguage(preferred, acceptLanguage string) models.Language {
	if l := models.Language(preferred); l.IsValid() {
		return l
	}
	_, idx := language.MatchStrings(languageMatcher, acceptLanguage)
	switch supportedLanguages[idx] {
	case language.English:
		return models.LanguageEnglish
	case language.Japanese:
		return models.LanguageJapanese
	default:
		return models.LanguageKorean
	}
}

var messageCatalog = map[string]map[models.Language]string{
	CodeRequiredName: {
		"ko": "이름을 입력해주세요",
		"en": "Please enter your name",
		"ja": "名前を入力してください",
	},
	CodeInvalidName: {
		"ko": "이름은 1자 이상 100자 이하로 입력해주세요",
		"en": "Name must be 1-100 characters",
		"ja": "名前は1文字以上100文字以下で入力してください",
	},
	CodeRequiredEmail: {
		"ko": "이메일을 입력해주세요",
		"en": "Please enter your email",
		"ja": "メールアドレスを入力してください",
	},
	CodeInvalidEmail: {
		"ko": "유효한 이메일 주소를 입력해주세요",
		"en": "Please enter a valid email address",
		"ja": "有効なメールアドレスを入力してください",
	},
	CodeRequiredNickname: {
		"ko": "닉네임을 입력해주세요",
		"en": "Please enter a nickname",
		"ja": "ニックネームを入力してください",
	},
	CodeInvalidNickname: {
		"ko": "닉네임은 2자 이상 50자 이하의 한글, 영문, 숫자, -, _만 가능합니다",
		"en": "Nickname must be 2-50 characters (letters, numbers, -, _)",
		"ja": "ニックネームは2文字以上50文字以下の文字、数字、-、_のみ使用可能です",
	},
	CodeInvalidPhone: {
		"ko": "올바른 전화번호 형식을 입력해주세요 (예: 010-1234-5678)",
		"en": "Please enter a valid phone number format",
		"ja": "正しい電話番号形式を入力してください",
	},
	CodeInvalidLanguage: {
		"ko": "지원하지 않는 언어입니다",
		"en": "Unsupported language",
		"ja": "サポートされていない言語です",
	},
	CodeInvalidReferralCode: {
		"ko": "유효하지 않은 추천 코드입니다",
		"en": "Invalid referral code",
		"ja": "無効な紹介コードです",
	},
	CodeReferralCodeNotFound: {
		"ko": "존재하지 않는 추천 코드입니다",
		"en": "Referral code not found",
		"ja": "紹介コードが見つかりません",
	},
	CodeSelfReferral: {
		"ko": "자신의 추천 코드는 사용할 수 없습니다",
		"en": "You cannot use your own referral code",
		"ja": "自分の紹介コードは使用できません",
	},
	CodeEmailAlreadyExists: {
		"ko": "이미 등록된 이메일입니다",
		"en": "Email is already registered",
		"ja": "このメールアドレスは既に登録されています",
	},
	CodeNicknameAlreadyExists: {
		"ko": "이미 사용 중인 닉네임입니다",
		"en": "Nickname is already in use",
		"ja": "このニックネームは既に使用されています",
	},
	CodeUserNotFound: {
		"ko": "사용자를 찾을 수 없습니다",
		"en": "User not found",
		"ja": "ユーザーが見つかりません",
	},
	CodeEmailNotRegistered: {
		"ko": "사전등록되지 않은 이메일입니다. 먼저 사전등록을 완료해주세요",
		"en": "This email is not pre-registered. Please pre-register first",
		"ja": "事前登録されていないメールアドレスです。先に事前登録を完了してください",
	},
	CodeTierNotFound: {
		"ko": "보상 티어를 찾을 수 없습니다",
		"en": "Reward tier not found",
		"ja": "報酬ティアが見つかりません",
	},
	CodeRewardNotUnlocked: {
		"ko": "아직 해금되지 않은 보상입니다",
		"en": "This reward has not been unlocked yet",
		"ja": "この報酬はまだ解放されていません",
	},
	CodeRateLimitExceeded: {
		"ko": "너무 많은 로그인 시도가 있었습니다. %d분 후에 다시 시도해주세요",
		"en": "Too many attempts. Please try again in %d minutes",
		"ja": "試行回数が多すぎます。%d分後にもう一度お試しください",
	},
	CodeInvalidAuthCallback: {
		"ko": "인증 링크가 올바르지 않거나 만료되었습니다",
		"en": "The sign-in link is invalid or has expired",
		"ja": "認証リンクが無効か期限切れです",
	},
	CodeAuthProviderError: {
		"ko": "로그인 처리 중 오류가 발생했습니다",
		"en": "An error occurred while signing in",
		"ja": "ログイン処理中にエラーが発生しました",
	},
	CodeDatabaseError: {
		"ko": "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요",
		"en": "A temporary error occurred. Please try again later",
		"ja": "一時的なエラーが発生しました。後でもう一度お試しください",
	},
	CodeRegistrationFailed: {
		"ko": "사전등록에 실패했습니다. 다시 시도해주세요",
		"en": "Pre-registration failed. Please try again",
		"ja": "事前登録に失敗しました。もう一度お試しください",
	},
	CodeUnknown: {
		"ko": "알 수 없는 오류가 발생했습니다",
		"en": "An unknown error occurred",
		"ja": "不明なエラーが発生しました",
	},
}

// UserMessage renders the localized message for err
func UserMessage(err error, lang models.Language) string {
	if !lang.IsValid() {
		lang = models.LanguageKorean
	}
	de, ok := AsDomainError(err)
	if !ok {
		return messageCatalog[CodeUnknown][lang]
	}
	msgs, ok := messageCatalog[de.Code]
	if !ok {
		return messageCatalog[CodeUnknown][lang]
	}
	if de.Kind == KindRateLimited {
		return fmt.Sprintf(msgs[lang], de.RetryAfterMinutes())
	}
	return msgs[lang]
}
