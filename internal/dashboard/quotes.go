package dashboard

import (
	"time"

	"kindledash/internal/model"
)

// quotes is a small curated set for the footer, cycled by day of year so no
// API call is needed.
var quotes = []model.Quote{
	{Text: "Simplicity is the ultimate sophistication.", Author: "Leonardo da Vinci"},
	{Text: "The best way to predict the future is to invent it.", Author: "Alan Kay"},
	{Text: "Make each day your masterpiece.", Author: "John Wooden"},
	{Text: "An unexamined life is not worth living.", Author: "Socrates"},
	{Text: "Either write something worth reading or do something worth writing.", Author: "Benjamin Franklin"},
	{Text: "You miss 100% of the shots you don't take.", Author: "Wayne Gretzky"},
	{Text: "It does not matter how slowly you go as long as you do not stop.", Author: "Confucius"},
	{Text: "Whether you think you can or think you can't, you're right.", Author: "Henry Ford"},
	{Text: "The only way to do great work is to love what you do.", Author: "Steve Jobs"},
	{Text: "In the middle of difficulty lies opportunity.", Author: "Albert Einstein"},
	{Text: "Life is what happens when you're busy making other plans.", Author: "John Lennon"},
	{Text: "Two roads diverged in a wood, and I took the one less traveled by.", Author: "Robert Frost"},
	{Text: "The only impossible journey is the one you never begin.", Author: "Tony Robbins"},
	{Text: "Spread love everywhere you go.", Author: "Mother Teresa"},
	{Text: "When you reach the end of your rope, tie a knot in it and hang on.", Author: "Franklin D. Roosevelt"},
	{Text: "You will face many defeats in life, but never let yourself be defeated.", Author: "Maya Angelou"},
	{Text: "The greatest glory in living lies not in never falling, but in rising every time we fall.", Author: "Nelson Mandela"},
	{Text: "Never let the fear of striking out keep you from playing the game.", Author: "Babe Ruth"},
	{Text: "Life is either a daring adventure or nothing at all.", Author: "Helen Keller"},
	{Text: "If life were predictable it would cease to be life, and be without flavor.", Author: "Eleanor Roosevelt"},
	{Text: "If you look at what you have in life, you'll always have more.", Author: "Oprah Winfrey"},
	{Text: "Be yourself; everyone else is already taken.", Author: "Oscar Wilde"},
	{Text: "You only live once, but if you do it right, once is enough.", Author: "Mae West"},
	{Text: "It is never too late to be what you might have been.", Author: "George Eliot"},
}

// dailyQuote picks the footer quote for the given day.
func dailyQuote(now time.Time) model.Quote {
	return quotes[now.YearDay()%len(quotes)]
}
