package dialogue

import (
	"fmt"
	"strings"

	"github.com/avvvet/storebuddy/internal/models"
)

// Replies are in Spanish, the language of the storefront.
const (
	msgApology          = "Lo siento, no pude procesar tu solicitud en este momento."
	msgNoneFound        = "Lo siento, no encontré productos que coincidan con tu búsqueda."
	msgMatchesHeader    = "Estos son los productos que encontré:"
	msgInStockHeader    = "Estos son los productos que tenemos en stock:"
	msgNothingInStock   = "Por ahora no tenemos productos en stock."
	msgNoCategory       = "¿Qué tipo de producto buscas? Tenemos productos disponibles en: %s."
	msgSuggestion       = "Te recomiendo %s. Es la opción que mejor se ajusta a lo que buscas."
	msgDescription      = "%s: %s"
	msgNoDescription    = "Lo siento, no encontré la descripción de ese producto."
	msgDescriptionError = "Lo siento, hubo un error al obtener la descripción del producto."
	msgAskProduct       = "¿Qué producto te gustaría comprar?"
	msgProductNotFound  = "Lo siento, no encontré %q en nuestro inventario."
	msgAddedToCart      = "Se agregaron %d unidad(es) de %s a tu carrito."
	msgSampleHeader     = "Algunos de nuestros productos disponibles:"

	msgOrderConfirmed    = "Orden confirmada: %d x %s. Total: $%s. Quedan %d en stock."
	msgOrderInsufficient = "Lo siento, solo tenemos %d unidad(es) de %s en stock. No se realizó la orden."
	msgOrderNotFound     = "Lo siento, el producto solicitado no existe."
	msgOrderInvalid      = "La cantidad debe ser mayor que cero."
	msgOrderFailed       = "Lo siento, no pudimos completar tu orden. Inténtalo de nuevo más tarde."

	msgSoldOut = "Aviso: %s se ha agotado."
)

// SoldOutNotice is broadcast to every session when a product runs out.
func SoldOutNotice(name string) string {
	return fmt.Sprintf(msgSoldOut, name)
}

// productLine renders "<name> - <qty> en stock ($<price>)".
func productLine(p models.Product) string {
	if p.Price == nil {
		return fmt.Sprintf("%s - %d en stock", p.Name, p.Quantity)
	}
	return fmt.Sprintf("%s - %d en stock ($%s)", p.Name, p.Quantity, models.FormatPrice(*p.Price))
}

func listProducts(header string, products []models.Product) string {
	var b strings.Builder
	b.WriteString(header)
	for _, p := range products {
		b.WriteString("\n- ")
		b.WriteString(productLine(p))
	}
	return b.String()
}

// inStockListing is the best-effort fallback used after every failure.
func inStockListing(products []models.Product) string {
	if len(products) == 0 {
		return msgNothingInStock
	}
	return listProducts(msgInStockHeader, products)
}

func apologize(inStock []models.Product) string {
	return msgApology + "\n\n" + inStockListing(inStock)
}
