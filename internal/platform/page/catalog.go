// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package page

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// Supported lists the page locales in preference order. English is the fallback.
var Supported = []language.Tag{language.English, language.Vietnamese, language.French}

// translations maps English source strings to their vi and fr renderings.
var translations = map[string][2]string{
	"Page not found": {"Không tìm thấy trang", "Page introuvable"},
	"The page you are looking for does not exist.": {
		"Trang bạn tìm không tồn tại.",
		"La page que vous cherchez n'existe pas.",
	},
	"Access denied": {"Truy cập bị từ chối", "Accès refusé"},
	"You do not have permission to view this page.": {
		"Bạn không có quyền xem trang này.",
		"Vous n'avez pas l'autorisation de voir cette page.",
	},
	"Something went wrong": {"Đã xảy ra lỗi", "Une erreur s'est produite"},
	"Please try again in a moment.": {
		"Vui lòng thử lại sau giây lát.",
		"Veuillez réessayer dans un instant.",
	},
	"Back to home":      {"Về trang chủ", "Retour à l'accueil"},
	"Sign in":           {"Đăng nhập", "Se connecter"},
	"Continue with %s":  {"Tiếp tục với %s", "Continuer avec %s"},
	"Email address required": {"Cần địa chỉ email", "Adresse e-mail requise"},
	"Your %s account did not share an email address. Enter one to continue.": {
		"Tài khoản %s của bạn không chia sẻ địa chỉ email. Hãy nhập email để tiếp tục.",
		"Votre compte %s n'a pas partagé d'adresse e-mail. Saisissez-en une pour continuer.",
	},
	"Continue":          {"Tiếp tục", "Continuer"},
	"Welcome to Lumina": {"Chào mừng đến với Lumina", "Bienvenue sur Lumina"},
	"Learning spaces for schools, families and providers.": {
		"Không gian học tập cho trường học, gia đình và nhà cung cấp.",
		"Des espaces d'apprentissage pour les écoles, les familles et les prestataires.",
	},
	"Workspace":           {"Không gian làm việc", "Espace de travail"},
	"Staff console":       {"Bảng điều khiển nhân viên", "Console du personnel"},
	"Signed in as %s":     {"Đã đăng nhập với %s", "Connecté en tant que %s"},
	"Completing sign in…": {"Đang hoàn tất đăng nhập…", "Finalisation de la connexion…"},
	"Accounts":            {"Tài khoản", "Comptes"},
	"Workspaces":          {"Không gian làm việc", "Espaces de travail"},
	"Active sessions":     {"Phiên đang hoạt động", "Sessions actives"},
}

func newCatalog() (catalog.Catalog, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for source, localized := range translations {
		if err := builder.SetString(language.English, source, source); err != nil {
			return nil, err
		}
		if err := builder.SetString(language.Vietnamese, source, localized[0]); err != nil {
			return nil, err
		}
		if err := builder.SetString(language.French, source, localized[1]); err != nil {
			return nil, err
		}
	}
	return builder, nil
}
