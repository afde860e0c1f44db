package emails

import (
	"fmt"
	"html"
	"time"
)

const (
	brandName    = "AutoStand"
	themePrimary = "#C2410C"
	themeText    = "#1F2937"
	themeMuted   = "#6B7280"
	themeBody    = "#F3F4F6"
)

// Layout wraps message content in the shared transactional e-mail frame.
func Layout(contentHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="pt">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <style>
    body { margin: 0; padding: 0; background-color: %s; font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %s; }
    .content p { margin: 0 0 20px 0; font-size: 16px; line-height: 1.6; }
    .content h1 { font-size: 22px; margin: 0 0 18px 0; }
    .button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 28px; border-radius: 6px; font-weight: 600; text-decoration: none; }
    .footer { color: %s; font-size: 13px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="background-color: #ffffff; border-radius: 8px;">
          <tr><td align="center" style="padding: 36px 0 24px 0; font-size: 24px; font-weight: 700; color: %s;">%s</td></tr>
          <tr><td class="content" style="padding: 0 48px 24px 48px;">%s</td></tr>
          <tr><td class="footer" align="center" style="padding: 24px 48px 36px 48px;">© %d %s</td></tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		brandName, themeBody, themeText, themePrimary, themeMuted,
		themePrimary, brandName, contentHTML, time.Now().Year(), brandName)
}

func validationContent(name, link string) string {
	return fmt.Sprintf(`
    <h1>Olá %s, bem-vindo ao %s!</h1>
    <p>Para concluir o registo confirme o seu endereço de email.</p>
    <center><a href="%s" class="button">Validar email</a></center>
    <p class="footer">Se não criou esta conta pode ignorar esta mensagem.</p>
`, html.EscapeString(name), brandName, html.EscapeString(link))
}

func sellerApprovedContent(name string) string {
	return fmt.Sprintf(`
    <h1>Conta de vendedor aprovada</h1>
    <p>Olá %s, a sua conta de vendedor foi aprovada. Já pode publicar anúncios.</p>
`, html.EscapeString(name))
}

func accountBlockedContent(name, reason string) string {
	return fmt.Sprintf(`
    <h1>Conta bloqueada</h1>
    <p>Olá %s, a sua conta foi bloqueada por um administrador.</p>
    <p><strong>Motivo:</strong> %s</p>
`, html.EscapeString(name), html.EscapeString(reason))
}
