package signup

import "github.com/gabrielmiguelok/livesignup/pkg/i18n"

// Korean is the default catalogue.
var Korean = map[string]string{
	"signup.name.min":          "이름은 2글자 이상이어야 합니다.",
	"signup.email.invalid":     "올바른 이메일을 입력해 주세요.",
	"signup.phone.length":      "연락처는 11자리여야 합니다.",
	"signup.phone.pattern":     "010으로 시작하는 11자리 숫자를 입력해주세요",
	"signup.role.required":     "역할을 선택해주세요.",
	"signup.password.min":      "비밀번호는 최소 8자리 이상이어야 합니다.",
	"signup.password.pattern":  "비밀번호는 최소 8자리 이상, 영문, 숫자, 특수문자를 포함해야 합니다.",
	"signup.password.mismatch": "비밀번호가 일치하지 않습니다.",

	"signup.title":       "계정을 생성합니다",
	"signup.description": "필수 정보를 입력헤볼게요.",

	"signup.label.name":     "이름",
	"signup.label.email":    "이메일",
	"signup.label.phone":    "연락처",
	"signup.label.role":     "역할",
	"signup.label.password": "비밀번호",
	"signup.label.confirm":  "비밀번호 확인",

	"signup.placeholder.name":  "홍길동",
	"signup.placeholder.email": "hello@devcamp.com",
	"signup.placeholder.phone": "01012345678",
	"signup.placeholder.role":  "역할을 선택해주세요",

	"signup.role.admin": "관리자",
	"signup.role.user":  "일반사용자",

	"signup.button.next":   "다음 단계로",
	"signup.button.back":   "이전 단계로",
	"signup.button.submit": "등록하기",
	"signup.button.close":  "닫기",

	"signup.result.title": "제출된 정보",

	"signup.step_one.invalid": "이전 단계에서 확인이 필요한 항목",

	"landing.title": "회원가입 데모",
	"landing.link":  "회원가입",

	"theme.label":  "테마",
	"theme.light":  "라이트",
	"theme.dark":   "다크",
	"theme.system": "시스템",
}

// English is the alternative catalogue.
var English = map[string]string{
	"signup.name.min":          "Name must be at least 2 characters.",
	"signup.email.invalid":     "Please enter a valid email address.",
	"signup.phone.length":      "Phone number must be 11 digits.",
	"signup.phone.pattern":     "Enter an 11 digit number starting with 010.",
	"signup.role.required":     "Please choose a role.",
	"signup.password.min":      "Password must be at least 8 characters.",
	"signup.password.pattern":  "Password needs 8+ characters with letters, digits and a special character.",
	"signup.password.mismatch": "Passwords do not match.",

	"signup.title":       "Create an account",
	"signup.description": "Fill in the required details.",

	"signup.label.name":     "Name",
	"signup.label.email":    "Email",
	"signup.label.phone":    "Phone",
	"signup.label.role":     "Role",
	"signup.label.password": "Password",
	"signup.label.confirm":  "Confirm password",

	"signup.placeholder.name":  "Hong Gildong",
	"signup.placeholder.email": "hello@devcamp.com",
	"signup.placeholder.phone": "01012345678",
	"signup.placeholder.role":  "Choose a role",

	"signup.role.admin": "Administrator",
	"signup.role.user":  "User",

	"signup.button.next":   "Next",
	"signup.button.back":   "Back",
	"signup.button.submit": "Sign up",
	"signup.button.close":  "Close",

	"signup.result.title": "Submitted data",

	"signup.step_one.invalid": "Check these fields on the previous step",

	"landing.title": "Signup demo",
	"landing.link":  "Sign up",

	"theme.label":  "Theme",
	"theme.light":  "Light",
	"theme.dark":   "Dark",
	"theme.system": "System",
}

// NewTranslator returns a translator with both catalogues loaded and
// fallback as the default locale.
func NewTranslator(fallback string) *i18n.Translator {
	t := i18n.NewTranslator(fallback)
	t.Load("ko", Korean)
	t.Load("en", English)
	return t
}
