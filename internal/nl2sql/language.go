package nl2sql

import (
	"strings"
)

var portugueseMarkers = map[string]struct{}{
	"quantos": {}, "quantas": {}, "qual": {}, "quais": {}, "quem": {}, "media": {},
	"maior": {}, "menor": {}, "estudantes": {}, "estudante": {}, "alunos": {}, "aluno": {},
	"professores": {}, "professor": {}, "cursos": {}, "curso": {}, "departamento": {},
	"departamentos": {}, "notas": {}, "nota": {}, "salario": {}, "creditos": {}, "ha": {},
	"sao": {}, "por": {}, "em": {}, "dos": {}, "das": {}, "do": {}, "da": {}, "de": {},
	"que": {}, "com": {}, "mais": {}, "menos": {}, "liste": {}, "listar": {}, "mostre": {},
	"todos": {}, "todas": {}, "orcamento": {}, "disciplinas": {}, "ano": {},
}

var englishMarkers = map[string]struct{}{
	"how": {}, "many": {}, "what": {}, "which": {}, "who": {}, "the": {}, "students": {},
	"student": {}, "average": {}, "highest": {}, "lowest": {}, "instructors": {},
	"instructor": {}, "courses": {}, "course": {}, "department": {}, "departments": {},
	"grades": {}, "grade": {}, "salary": {}, "credits": {}, "is": {}, "are": {}, "by": {},
	"in": {}, "of": {}, "with": {}, "more": {}, "less": {}, "than": {}, "list": {}, "show": {},
	"all": {}, "budget": {}, "year": {}, "has": {}, "have": {},
}

// DetectLanguage guesses pt or en from marker words and Portuguese
// diacritics. Ties resolve to English.
func DetectLanguage(text string) Language {
	pt, en := 0, 0
	for _, r := range strings.ToLower(text) {
		switch r {
		case 'ã', 'õ', 'ç', 'á', 'é', 'í', 'ó', 'ú', 'â', 'ê', 'ô', 'à':
			pt += 2
		}
	}
	for _, word := range strings.Fields(Normalize(text)) {
		if _, ok := portugueseMarkers[word]; ok {
			pt++
		}
		if _, ok := englishMarkers[word]; ok {
			en++
		}
	}
	if pt > en {
		return LanguagePortuguese
	}
	return LanguageEnglish
}
