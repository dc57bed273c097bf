// Package codec converts byte sequences between textual and binary
// representations.
//
// # Overview
//
// Every conversion decodes its input into a canonical byte sequence and then
// renders that sequence in the output format:
//   - Base16, Base32, Base64 (plain and MIME), basE91
//   - C escaped strings (\x48\x69) and Java escaped strings (\u0048i)
//   - plain strings, URL encoding and quoted-printable, under any charset
//   - digests, byte literals (0x48, 0x69) and a hex view
//
// # Quick Start
//
//	result, err := codec.Convert(codec.Request{
//	    Input:        "SGk=",
//	    InputFormat:  codec.FormatBase64,
//	    OutputFormat: codec.FormatBase16,
//	})
//	// result.Text: "4869"
//
// Charset-parametric formats need a charset on their side of the request:
//
//	result, err := codec.Convert(codec.Request{
//	    Input:         "caf=C3=A9",
//	    InputFormat:   codec.FormatQuotedPrintable,
//	    InputCharset:  "UTF-8",
//	    OutputFormat:  codec.FormatString,
//	    OutputCharset: "UTF-8",
//	})
//
// # Errors
//
// Convert reports *ConfigurationError for illegal format and charset
// combinations, *CharsetError for charsets that cannot be resolved or
// cannot represent the text, and *MalformedInputError for input outside
// the grammar of its format. Use errors.Is with ErrConfiguration,
// ErrCharset and ErrMalformedInput to tell them apart.
//
// # Recipes
//
// A Recipe saves the formats, charsets and escape options of a request
// under a name so it can be replayed:
//
//	rm := codec.NewRecipeManager("/home/user/.bytecodec/recipes")
//	_ = rm.LoadRecipes()
//	recipe, _ := rm.GetRecipe("b64-to-hex")
//	result, err := codec.Convert(recipe.Request("SGk="))
package codec
